// Package scraper fills in article descriptions that feeds leave empty by
// reading the linked page.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/ratelimit"
	"github.com/deusflow/newstopics/internal/source"
)

const (
	DefaultLimit = 5
	// enough text for a two-sentence summary
	maxDescriptionLen = 600
	minParagraphLen   = 20
)

var paragraphSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// Enricher wraps a source and completes articles that have no description.
// At most Limit pages are fetched per batch; failures leave the article
// as it was.
type Enricher struct {
	Source  source.ArticleSource
	Client  *http.Client
	Limiter *ratelimit.FetchLimiter
	Limit   int
	Logger  *slog.Logger
}

func (e *Enricher) LoadArticles(ctx context.Context) ([]news.Article, error) {
	articles, err := e.Source.LoadArticles(ctx)
	if err != nil {
		return nil, err
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scraper")
	limit := e.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	fetched, filled := 0, 0
	for i := range articles {
		if articles[i].Description != "" || articles[i].Link == "" {
			continue
		}
		if fetched >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fetched++

		text, err := e.fetchDescription(ctx, articles[i].Link)
		if err != nil {
			logger.Warn("could not read article page", "url", articles[i].Link, "error", err)
			continue
		}
		if text != "" {
			articles[i].Description = text
			filled++
		}
	}
	if fetched > 0 {
		logger.Info("article descriptions enriched", "fetched", fetched, "filled", filled)
	}
	return articles, nil
}

func (e *Enricher) fetchDescription(ctx context.Context, pageURL string) (string, error) {
	if e.Limiter != nil {
		u, err := url.Parse(pageURL)
		if err != nil {
			return "", err
		}
		if err := e.Limiter.Wait(ctx, u.Hostname()); err != nil {
			return "", err
		}
	}

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	return Extract(doc), nil
}

// Extract returns the page's meta description, or its first substantial
// paragraphs when there is none.
func Extract(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if text := normalize(content); text != "" {
				return truncate(text)
			}
		}
	}

	var paragraphs []string
	for _, sel := range paragraphSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := normalize(s.Text()); len(text) > minParagraphLen {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	return truncate(strings.Join(paragraphs, " "))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts at the last sentence end within the limit, or at the
// limit when there is none.
func truncate(s string) string {
	if len(s) <= maxDescriptionLen {
		return s
	}
	n := maxDescriptionLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	cut := s[:n]
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 {
		return cut[:i+1]
	}
	return strings.TrimSpace(cut)
}
