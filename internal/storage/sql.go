package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/deusflow/newstopics/internal/news"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	headline TEXT NOT NULL,
	summary TEXT NOT NULL,
	importance REAL NOT NULL,
	published TEXT NOT NULL,
	sources TEXT NOT NULL,
	links TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topics_category_importance ON topics (category, importance DESC);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS topics (
	id SERIAL PRIMARY KEY,
	run_id VARCHAR(64) NOT NULL DEFAULT '',
	category VARCHAR(100) NOT NULL,
	headline TEXT NOT NULL,
	summary TEXT NOT NULL,
	importance DOUBLE PRECISION NOT NULL,
	published TEXT NOT NULL,
	sources TEXT NOT NULL,
	links TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topics_category_importance ON topics (category, importance DESC);
`

// SQLStore keeps topics in SQLite or PostgreSQL. Sources and links are
// stored as JSON text.
type SQLStore struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to the database and creates the schema if needed.
func OpenSQL(driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if driver == "sqlite3" && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite3" {
		// sqlite allows one writer; a single connection also keeps :memory: alive
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: logger.With("component", "storage", "driver", driver),
	}
	if driver == "postgres" {
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info("topic store ready")
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveTopics inserts topics in one transaction.
func (s *SQLStore) SaveTopics(ctx context.Context, category string, topics []news.Topic) error {
	if len(topics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID := saveRunID(ctx)
	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, t := range topics {
		sources, err := json.Marshal(nonNil(t.Sources))
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}
		links, err := json.Marshal(nonNil(t.Links))
		if err != nil {
			return fmt.Errorf("failed to encode links: %w", err)
		}

		query, args, err := s.sb.Insert("topics").
			Columns("run_id", "category", "headline", "summary", "importance", "published", "sources", "links", "created_at").
			Values(runID, category, t.Headline, t.Summary, t.Importance, formatPublished(t.Published), string(sources), string(links), createdAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert topic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit topics: %w", err)
	}
	s.logger.Debug("topics saved", "category", category, "count", len(topics), "run_id", runID)
	return nil
}

// FetchTop reads the best topics of the latest run stored for category.
// Malformed source or link columns decode to empty lists.
func (s *SQLStore) FetchTop(ctx context.Context, category string, limit int) ([]news.Topic, error) {
	query, args, err := s.sb.
		Select("headline", "summary", "importance", "published", "sources", "links").
		From("topics").
		Where(sq.Eq{"category": category}).
		Where("run_id = (SELECT run_id FROM topics WHERE category = ? ORDER BY id DESC LIMIT 1)", category).
		OrderBy("importance DESC", "published DESC", "id ASC").
		Limit(uint64(normalizeLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	topics := []news.Topic{}
	for rows.Next() {
		var (
			t                         news.Topic
			published, sources, links string
		)
		if err := rows.Scan(&t.Headline, &t.Summary, &t.Importance, &published, &sources, &links); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		t.Published = parsePublished(published)
		t.Sources = decodeList(sources)
		t.Links = decodeList(links)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return topics, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func decodeList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
