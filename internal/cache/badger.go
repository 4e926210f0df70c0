package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Badger is a FeedCache persisted in a BadgerDB directory. Entry expiry is
// handled by badger's native TTL.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ FeedCache = (*Badger)(nil)

// OpenBadger opens the cache at path, or an in-memory instance when path
// is empty.
func OpenBadger(path string, logger *slog.Logger) (*Badger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db, logger: logger}, nil
}

func (b *Badger) Get(key string) ([]byte, bool) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			b.logger.Warn("feed cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (b *Badger) Set(key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("write feed cache: %w", err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger forwards badger's internal logging to slog. Info and debug
// output is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

// Open returns the FeedCache for driver: memory, badger, redis or none.
// For badger path is a directory, for redis an address or URL.
func Open(driver, path string, logger *slog.Logger) (FeedCache, error) {
	switch driver {
	case "memory", "":
		return NewMemory(time.Hour), nil
	case "badger":
		return OpenBadger(path, logger)
	case "redis":
		return OpenRedis(path, logger)
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}
