// Package source defines where article batches come from.
package source

import (
	"context"
	"log/slog"

	"github.com/deusflow/newstopics/internal/news"
)

// ArticleSource supplies one finite batch of normalized articles.
type ArticleSource interface {
	LoadArticles(ctx context.Context) ([]news.Article, error)
}

// Func adapts a function to ArticleSource.
type Func func(ctx context.Context) ([]news.Article, error)

func (f Func) LoadArticles(ctx context.Context) ([]news.Article, error) { return f(ctx) }

// Fallback returns the primary batch, or the secondary one when the
// primary fails or yields no articles.
type Fallback struct {
	Primary   ArticleSource
	Secondary ArticleSource
	Logger    *slog.Logger
}

func (f *Fallback) LoadArticles(ctx context.Context) ([]news.Article, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	articles, err := f.Primary.LoadArticles(ctx)
	if err == nil && len(articles) > 0 {
		return articles, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		logger.Warn("primary source failed, using fallback", "error", err)
	} else {
		logger.Warn("no articles fetched from feeds, using fallback")
	}
	return f.Secondary.LoadArticles(ctx)
}
