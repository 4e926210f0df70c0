// Package rss fetches category feeds and normalizes their items into
// articles.
package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newstopics/internal/cache"
	"github.com/deusflow/newstopics/internal/metrics"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/ratelimit"
	"github.com/deusflow/newstopics/internal/retry"
)

// maxFeedBytes caps the size of a single feed body.
const maxFeedBytes = 10 << 20

// Feed is a feed URL whose items all belong to Category.
type Feed struct {
	Category string
	URL      string
}

type Options struct {
	Feeds    []Feed
	Client   *http.Client
	Cache    cache.FeedCache
	CacheTTL time.Duration
	Limiter  *ratelimit.FetchLimiter
	Retry    retry.Policy
	Logger   *slog.Logger
	Now      func() time.Time
}

// FeedSource loads articles from RSS and Atom feeds. A failing feed is
// logged and skipped.
type FeedSource struct {
	feeds    []Feed
	client   *http.Client
	parser   *gofeed.Parser
	cache    cache.FeedCache
	cacheTTL time.Duration
	limiter  *ratelimit.FetchLimiter
	policy   retry.Policy
	logger   *slog.Logger
	now      func() time.Time
}

func NewFeedSource(opts Options) *FeedSource {
	s := &FeedSource{
		feeds:    opts.Feeds,
		client:   opts.Client,
		parser:   gofeed.NewParser(),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		limiter:  opts.Limiter,
		policy:   opts.Retry,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(0, 0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "rss")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// LoadArticles downloads and parses every configured feed.
func (s *FeedSource) LoadArticles(ctx context.Context) ([]news.Article, error) {
	var all []news.Article
	ok := 0
	for _, f := range s.feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := s.fetch(ctx, f.URL)
		if err != nil {
			s.logger.Warn("skipping feed", "url", f.URL, "category", f.Category, "error", err)
			continue
		}
		articles, err := s.Parse(body, f.Category)
		if err != nil {
			s.logger.Warn("skipping unparsable feed", "url", f.URL, "error", err)
			continue
		}
		all = append(all, articles...)
		ok++
		s.logger.Debug("feed loaded", "url", f.URL, "items", len(articles))
	}
	s.logger.Info("feeds processed", "ok", ok, "total", len(s.feeds), "articles", len(all))
	return all, nil
}

func (s *FeedSource) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	key := cache.Key(feedURL)
	if body, ok := s.cache.Get(key); ok {
		metrics.RecordFeedFetch("cached")
		return body, nil
	}

	if err := s.limiter.Wait(ctx, hostOf(feedURL)); err != nil {
		return nil, err
	}

	var body []byte
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", "newstopics/1.0")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP error: %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		return err
	})
	if err != nil {
		metrics.RecordFeedFetch("error")
		return nil, err
	}

	metrics.RecordFeedFetch("ok")
	if err := s.cache.Set(key, body, s.cacheTTL); err != nil {
		s.logger.Warn("feed cache write failed", "url", feedURL, "error", err)
	}
	return body, nil
}

// Parse converts a feed document into articles of category. Items without
// a date are stamped with the current time; the publisher is the host of
// the item link.
func (s *FeedSource) Parse(body []byte, category string) ([]news.Article, error) {
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published := s.now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		link := strings.TrimSpace(item.Link)
		articles = append(articles, news.Article{
			Title:       strings.TrimSpace(CleanHTML(item.Title)),
			Link:        link,
			Description: CleanHTML(description),
			Published:   published,
			Publisher:   hostOf(link),
			Category:    category,
		})
	}
	return articles, nil
}

// CleanHTML strips markup and collapses whitespace.
func CleanHTML(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// hostOf returns the host of rawURL without port, or "".
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
