// Package cache keeps raw feed bodies for a limited time so repeated
// updates do not refetch unchanged feeds.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// FeedCache stores byte payloads under string keys with a per-entry TTL.
type FeedCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key derives a fixed-length cache key from a feed URL.
func Key(url string) string {
	h := sha256.Sum256([]byte(url))
	return "feed:" + hex.EncodeToString(h[:])
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process FeedCache. Expired entries are dropped on read
// and by a periodic sweep.
type Memory struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ FeedCache = (*Memory)(nil)

// NewMemory starts a cache sweeping expired items every interval.
func NewMemory(interval time.Duration) *Memory {
	if interval <= 0 {
		interval = time.Hour
	}
	c := &Memory{
		items: make(map[string]cacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanupLoop(interval)
	return c
}

func (c *Memory) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if c.now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return item.value, true
}

// Len reports the number of entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Close() error { return nil }
