// Package storage persists pipeline topics per category.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newstopics/internal/news"
)

// DefaultLimit is the number of topics returned when no limit is given.
const DefaultLimit = 4

// publishedLayout is fixed-width so stored timestamps sort as text.
const publishedLayout = "2006-01-02T15:04:05.000000Z07:00"

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store saves topics by category and returns the best ones back.
type Store interface {
	// SaveTopics appends topics under category, tagged with the run id in
	// ctx.
	SaveTopics(ctx context.Context, category string, topics []news.Topic) error
	// FetchTop returns up to limit topics from the latest run saved for
	// category, ordered by importance descending, then publication time
	// descending. An unknown category yields an empty list.
	FetchTop(ctx context.Context, category string, limit int) ([]news.Topic, error)
	Close() error
}

type runIDKey struct{}

// WithRunID tags ctx with the pipeline run that produced saved topics.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// saveRunID is the run id a save is stored under. A save outside a
// pipeline run counts as a run of its own.
func saveRunID(ctx context.Context) string {
	if id := RunID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// Open returns the store for driver. Driver "none" yields a nil store.
func Open(driver, dsn string, logger *slog.Logger) (Store, error) {
	switch driver {
	case "sqlite3", "postgres":
		return OpenSQL(driver, dsn, logger)
	case "file":
		return OpenFile(dsn, logger)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// FetchDigest returns the top topics of every category. Categories without
// stored topics map to an empty list.
func FetchDigest(ctx context.Context, s Store, categories []string, limit int) (map[string][]news.Topic, error) {
	digest := make(map[string][]news.Topic, len(categories))
	for _, cat := range categories {
		topics, err := s.FetchTop(ctx, cat, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", cat, err)
		}
		digest[cat] = topics
	}
	return digest, nil
}

// FetchBreaking returns topics published within window of now whose
// importance is at least minImportance, scanning up to limit topics per
// category.
func FetchBreaking(ctx context.Context, s Store, categories []string, limit int, window time.Duration, minImportance float64, now time.Time) ([]news.CategoryTopic, error) {
	breaking := []news.CategoryTopic{}
	for _, cat := range categories {
		topics, err := s.FetchTop(ctx, cat, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", cat, err)
		}
		for _, t := range topics {
			if t.Published.IsZero() {
				continue
			}
			if now.Sub(t.Published) <= window && t.Importance >= minImportance {
				breaking = append(breaking, news.CategoryTopic{Topic: t, Category: cat})
			}
		}
	}
	return breaking, nil
}

func formatPublished(t time.Time) string {
	return t.UTC().Format(publishedLayout)
}

func parsePublished(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
