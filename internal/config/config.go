// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file, the file wins over
// the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/newstopics/internal/classify"
)

const defaultConfigPath = "configs/topics.yaml"

// Category is one classification rule plus the feeds that supply it.
type Category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Feeds    []string `yaml:"feeds"`
}

type PipelineConfig struct {
	Eps           float64 `yaml:"eps"`
	MinNeighbors  int     `yaml:"min_neighbors"`
	MaxSentences  int     `yaml:"max_sentences"`
	TopN          int     `yaml:"top_n"`
	Workers       int     `yaml:"workers"`
	Tokenizer     string  `yaml:"tokenizer"` // auto | linguistic | regex
	StopwordsPath string  `yaml:"stopwords_path"`
}

type SourceConfig struct {
	UseSample         bool          `yaml:"use_sample"` // offline: serve the sample batch only
	Timeout           time.Duration `yaml:"timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheDriver       string        `yaml:"cache_driver"` // memory | badger | redis | none
	CachePath         string        `yaml:"cache_path"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	// EnrichMissing reads the article page when a feed item has no
	// description, for at most EnrichLimit items per batch.
	EnrichMissing bool `yaml:"enrich_missing"`
	EnrichLimit   int  `yaml:"enrich_limit"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite3 | postgres | file | none
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr                  string        `yaml:"addr"`
	BreakingWindow        time.Duration `yaml:"breaking_window"`
	BreakingMinImportance float64       `yaml:"breaking_min_importance"`
	BreakingFetchLimit    int           `yaml:"breaking_fetch_limit"`
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string `yaml:"allow_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type Config struct {
	Categories []Category     `yaml:"categories"`
	Pipeline   PipelineConfig `yaml:"pipeline"`
	Source     SourceConfig   `yaml:"source"`
	Storage    StorageConfig  `yaml:"storage"`
	Server     ServerConfig   `yaml:"server"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rules := classify.DefaultRules()
	categories := make([]Category, 0, len(rules))
	for _, r := range rules {
		categories = append(categories, Category{Name: r.Category, Patterns: r.Patterns})
	}
	return &Config{
		Categories: categories,
		Pipeline: PipelineConfig{
			Eps:          0.5,
			MinNeighbors: 1,
			MaxSentences: 2,
			TopN:         4,
			Tokenizer:    "auto",
		},
		Source: SourceConfig{
			UseSample:         true,
			Timeout:           10 * time.Second,
			RetryAttempts:     3,
			RetryDelay:        2 * time.Second,
			RequestsPerSecond: 2,
			CacheDriver:       "memory",
			CachePath:         "data/feedcache",
			CacheTTL:          15 * time.Minute,
			EnrichLimit:       5,
		},
		Storage: StorageConfig{
			Driver: "sqlite3",
			DSN:    "data/news.db",
		},
		Server: ServerConfig{
			Addr:                  ":8080",
			BreakingWindow:        time.Hour,
			BreakingMinImportance: 0.7,
			BreakingFetchLimit:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (or $TOPICS_CONFIG, or configs/topics.yaml when present)
// over the defaults, applies environment overrides and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv("TOPICS_CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = defaultConfigPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Storage.Driver = getEnvOrDefault("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnvOrDefault("DATABASE_DSN", c.Storage.DSN)
	c.Server.Addr = getEnvOrDefault("HTTP_ADDR", c.Server.Addr)
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		c.Server.AllowOrigins = append(c.Server.AllowOrigins, frontendURL)
	}
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
	if os.Getenv("DEBUG") == "true" {
		c.Logging.Level = "debug"
	}

	c.Source.UseSample = getEnvBoolOrDefault("USE_SAMPLE", c.Source.UseSample)
	c.Source.EnrichMissing = getEnvBoolOrDefault("ENRICH_MISSING", c.Source.EnrichMissing)
	c.Source.CacheDriver = getEnvOrDefault("CACHE_DRIVER", c.Source.CacheDriver)
	c.Source.CachePath = getEnvOrDefault("CACHE_PATH", c.Source.CachePath)
	if c.Source.CacheDriver == "redis" {
		c.Source.CachePath = getEnvOrDefault("REDIS_URL", c.Source.CachePath)
	}
	c.Source.CacheTTL = getEnvDurationOrDefault("CACHE_TTL", c.Source.CacheTTL)

	c.Pipeline.TopN = getEnvIntOrDefault("TOP_N", c.Pipeline.TopN)
	c.Pipeline.Eps = getEnvFloatOrDefault("CLUSTER_EPS", c.Pipeline.Eps)
	c.Pipeline.MinNeighbors = getEnvIntOrDefault("CLUSTER_MIN_NEIGHBORS", c.Pipeline.MinNeighbors)
	c.Pipeline.Tokenizer = getEnvOrDefault("TOKENIZER", c.Pipeline.Tokenizer)
	c.Pipeline.StopwordsPath = getEnvOrDefault("STOPWORDS_PATH", c.Pipeline.StopwordsPath)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Rules returns the classification rules in category order.
func (c *Config) Rules() []classify.Rule {
	rules := make([]classify.Rule, 0, len(c.Categories))
	for _, cat := range c.Categories {
		rules = append(rules, classify.Rule{Category: cat.Name, Patterns: cat.Patterns})
	}
	return rules
}

// CategoryNames lists the configured categories in order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Feeds maps each category to its feed URLs. Categories without feeds are
// omitted.
func (c *Config) Feeds() map[string][]string {
	out := make(map[string][]string)
	for _, cat := range c.Categories {
		if len(cat.Feeds) > 0 {
			out[cat.Name] = cat.Feeds
		}
	}
	return out
}

func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category name is required")
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
	}
	if c.Pipeline.Eps <= 0 || c.Pipeline.Eps > 2 {
		return fmt.Errorf("pipeline.eps must be in (0, 2], got %v", c.Pipeline.Eps)
	}
	if c.Pipeline.MinNeighbors < 1 {
		return fmt.Errorf("pipeline.min_neighbors must be at least 1")
	}
	if c.Pipeline.MaxSentences < 1 {
		return fmt.Errorf("pipeline.max_sentences must be at least 1")
	}
	if c.Pipeline.TopN < 1 {
		return fmt.Errorf("pipeline.top_n must be at least 1")
	}
	switch c.Pipeline.Tokenizer {
	case "auto", "linguistic", "regex":
	default:
		return fmt.Errorf("pipeline.tokenizer must be 'auto', 'linguistic' or 'regex'")
	}
	switch c.Source.CacheDriver {
	case "memory", "badger", "redis", "none":
	default:
		return fmt.Errorf("source.cache_driver must be 'memory', 'badger', 'redis' or 'none'")
	}
	switch c.Storage.Driver {
	case "sqlite3", "postgres", "file":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	case "none":
	default:
		return fmt.Errorf("storage.driver must be 'sqlite3', 'postgres', 'file' or 'none'")
	}
	if c.Source.RetryAttempts < 1 {
		return fmt.Errorf("source.retry_attempts must be at least 1")
	}
	return nil
}
