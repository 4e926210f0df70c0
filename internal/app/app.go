// Package app assembles the topic pipeline, its sources and storage from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/deusflow/newstopics/internal/api"
	"github.com/deusflow/newstopics/internal/cache"
	"github.com/deusflow/newstopics/internal/classify"
	"github.com/deusflow/newstopics/internal/cluster"
	"github.com/deusflow/newstopics/internal/config"
	"github.com/deusflow/newstopics/internal/metrics"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/pipeline"
	"github.com/deusflow/newstopics/internal/ratelimit"
	"github.com/deusflow/newstopics/internal/retry"
	"github.com/deusflow/newstopics/internal/rss"
	"github.com/deusflow/newstopics/internal/score"
	"github.com/deusflow/newstopics/internal/scraper"
	"github.com/deusflow/newstopics/internal/source"
	"github.com/deusflow/newstopics/internal/storage"
	"github.com/deusflow/newstopics/internal/summarize"
	"github.com/deusflow/newstopics/internal/textproc"
)

// App owns every long-lived component of one process.
type App struct {
	cfg      *config.Config
	base     *slog.Logger
	log      *slog.Logger
	source   source.ArticleSource
	pipeline *pipeline.Pipeline
	store    storage.Store
	cache    cache.FeedCache
	limiter  *ratelimit.FetchLimiter
}

// New wires the application. With persist set every pipeline run saves its
// topics to the configured store.
func New(cfg *config.Config, logger *slog.Logger, persist bool) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, base: logger, log: logger.With("component", "app")}

	classifier, err := classify.New(cfg.Rules())
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	tok, err := textproc.Select(textproc.Mode(cfg.Pipeline.Tokenizer), cfg.Pipeline.StopwordsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("select tokenizer: %w", err)
	}
	a.log.Info("tokenizer selected", "mode", tok.Name())

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	if err := a.buildSource(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.pipeline = pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Grouper:    cluster.NewGrouper(cfg.Pipeline.Eps, cfg.Pipeline.MinNeighbors),
		Scorer:     score.New(),
		Summarizer: summarize.New(tok, cfg.Pipeline.MaxSentences),
		Store:      store,
		Logger:     logger,
	}, pipeline.Options{
		TopN:    cfg.Pipeline.TopN,
		Workers: cfg.Pipeline.Workers,
		Persist: persist && store != nil,
	})
	return a, nil
}

func (a *App) buildSource() error {
	sample := &source.Sample{}
	feeds := a.cfg.Feeds()

	if a.cfg.Source.UseSample {
		a.log.Info("using built-in sample articles")
		a.source = sample
		return nil
	}
	if len(feeds) == 0 {
		a.log.Warn("no feeds configured, using built-in sample articles")
		a.source = sample
		return nil
	}

	fc, err := cache.Open(a.cfg.Source.CacheDriver, a.cfg.Source.CachePath, a.base)
	if err != nil {
		return fmt.Errorf("open feed cache: %w", err)
	}
	a.cache = fc
	a.limiter = ratelimit.New(a.cfg.Source.RequestsPerSecond, 0)

	// categories in configuration order keep the batch deterministic
	var list []rss.Feed
	for _, category := range a.cfg.CategoryNames() {
		for _, url := range feeds[category] {
			list = append(list, rss.Feed{Category: category, URL: url})
		}
	}

	var primary source.ArticleSource = rss.NewFeedSource(rss.Options{
		Feeds:    list,
		Client:   &http.Client{Timeout: a.cfg.Source.Timeout},
		Cache:    fc,
		CacheTTL: a.cfg.Source.CacheTTL,
		Limiter:  a.limiter,
		Retry: retry.Policy{
			MaxAttempts: a.cfg.Source.RetryAttempts,
			Delay:       a.cfg.Source.RetryDelay,
			Backoff:     true,
		},
		Logger: a.base,
	})
	if a.cfg.Source.EnrichMissing {
		primary = &scraper.Enricher{
			Source:  primary,
			Client:  &http.Client{Timeout: a.cfg.Source.Timeout},
			Limiter: a.limiter,
			Limit:   a.cfg.Source.EnrichLimit,
			Logger:  a.base,
		}
	}
	a.source = &source.Fallback{Primary: primary, Secondary: sample, Logger: a.log}
	a.log.Info("using rss feeds", "feeds", len(list), "cache", a.cfg.Source.CacheDriver)
	return nil
}

// Run loads one batch and computes its topics.
func (a *App) Run(ctx context.Context) (map[string][]news.Topic, error) {
	articles, err := a.source.LoadArticles(ctx)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("load articles: %w", err)
	}
	a.log.Info("articles loaded", "count", len(articles))

	topics, err := a.pipeline.Run(ctx, articles)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	if a.limiter != nil {
		a.log.Debug("feed requests", "stats", a.limiter.GetStats())
	}
	return topics, nil
}

// Update satisfies api.Updater.
func (a *App) Update(ctx context.Context) (map[string][]news.Topic, error) {
	return a.Run(ctx)
}

// Categories lists configured categories followed by any extra ones found
// in topics (such as Unknown), sorted.
func (a *App) Categories(topics map[string][]news.Topic) []string {
	names := a.cfg.CategoryNames()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	var extra []string
	for category := range topics {
		if !known[category] {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Top reads back the stored topics of category.
func (a *App) Top(ctx context.Context, category string, limit int) ([]news.Topic, error) {
	if a.store == nil {
		return nil, errors.New("storage is disabled")
	}
	return a.store.FetchTop(ctx, category, limit)
}

// Server builds the HTTP API over this application.
func (a *App) Server() *api.Server {
	return api.New(a.store, a, api.Options{
		Categories:            a.cfg.CategoryNames(),
		DigestLimit:           a.cfg.Pipeline.TopN,
		BreakingWindow:        a.cfg.Server.BreakingWindow,
		BreakingMinImportance: a.cfg.Server.BreakingMinImportance,
		BreakingFetchLimit:    a.cfg.Server.BreakingFetchLimit,
		AllowOrigins:          a.cfg.Server.AllowOrigins,
	}, a.base)
}

// Close releases the store and the feed cache.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	return errors.Join(errs...)
}
