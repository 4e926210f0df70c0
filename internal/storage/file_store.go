package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/newstopics/internal/news"
)

// storedTopic is one persisted topic in the JSON file.
type storedTopic struct {
	RunID    string          `json:"run_id,omitempty"`
	Category string          `json:"category"`
	Topic    json.RawMessage `json:"topic"`
	SavedAt  time.Time       `json:"saved_at"`
}

// FileStore keeps all topics in a single JSON file. It suits single-process
// deployments and tests without a database.
type FileStore struct {
	filePath string
	items    []storedTopic
	mu       sync.RWMutex
	logger   *slog.Logger
}

var _ Store = (*FileStore)(nil)

// OpenFile loads the store at filePath, starting empty if the file does
// not exist yet.
func OpenFile(filePath string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs := &FileStore{
		filePath: filePath,
		logger:   logger.With("component", "storage", "driver", "file"),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &fs.items); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}
	return nil
}

// save writes the file atomically. Callers hold the write lock.
func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if dir := filepath.Dir(fs.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) SaveTopics(ctx context.Context, category string, topics []news.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	runID := saveRunID(ctx)
	now := time.Now().UTC()
	added := make([]storedTopic, 0, len(topics))
	for _, t := range topics {
		t.Sources = nonNil(t.Sources)
		t.Links = nonNil(t.Links)
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode topic: %w", err)
		}
		added = append(added, storedTopic{RunID: runID, Category: category, Topic: raw, SavedAt: now})
	}

	prev := len(fs.items)
	fs.items = append(fs.items, added...)
	if err := fs.save(); err != nil {
		fs.items = fs.items[:prev]
		return err
	}
	fs.logger.Debug("topics saved", "category", category, "count", len(topics), "run_id", runID)
	return nil
}

// FetchTop decodes the topics of the latest run stored for category. A
// record whose topic cannot be decoded is skipped; malformed source or link
// fields decode to empty lists.
func (fs *FileStore) FetchTop(ctx context.Context, category string, limit int) ([]news.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	latest := ""
	for _, item := range fs.items {
		if item.Category == category {
			latest = item.RunID
		}
	}

	topics := []news.Topic{}
	for _, item := range fs.items {
		if item.Category != category || item.RunID != latest {
			continue
		}
		t, err := decodeTopic(item.Topic)
		if err != nil {
			fs.logger.Warn("skipping unreadable topic", "category", category, "error", err)
			continue
		}
		topics = append(topics, t)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Importance != topics[j].Importance {
			return topics[i].Importance > topics[j].Importance
		}
		return topics[i].Published.After(topics[j].Published)
	})
	if limit = normalizeLimit(limit); len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

func decodeTopic(raw json.RawMessage) (news.Topic, error) {
	var fields struct {
		Headline   string          `json:"headline"`
		Summary    string          `json:"summary"`
		Importance float64         `json:"importance"`
		Published  string          `json:"published"`
		Sources    json.RawMessage `json:"sources"`
		Links      json.RawMessage `json:"links"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return news.Topic{}, err
	}
	return news.Topic{
		Headline:   fields.Headline,
		Summary:    fields.Summary,
		Importance: fields.Importance,
		Published:  parsePublished(fields.Published),
		Sources:    decodeList(string(fields.Sources)),
		Links:      decodeList(string(fields.Links)),
	}, nil
}

// Stats reports the number of stored topics per category.
func (fs *FileStore) Stats() map[string]int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	stats := make(map[string]int)
	for _, item := range fs.items {
		stats[item.Category]++
	}
	return stats
}

func (fs *FileStore) Close() error {
	return nil
}
