// Package api exposes stored and freshly computed topics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/deusflow/newstopics/internal/digest"
	"github.com/deusflow/newstopics/internal/metrics"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/storage"
)

const (
	ServiceName = "topicnews"

	DefaultBreakingWindow        = time.Hour
	DefaultBreakingMinImportance = 0.7
	DefaultBreakingFetchLimit    = 10
)

var errNoStore = errors.New("storage is disabled")

// Updater fetches a fresh batch, runs the pipeline over it and persists
// the result.
type Updater interface {
	Update(ctx context.Context) (map[string][]news.Topic, error)
}

type Options struct {
	Categories            []string
	DigestLimit           int
	BreakingWindow        time.Duration
	BreakingMinImportance float64
	BreakingFetchLimit    int
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
	// Status backs /health; nil selects metrics.Global.
	Status *metrics.Status
	Now    func() time.Time
}

type Server struct {
	store   storage.Store
	updater Updater
	opts    Options
	log     *slog.Logger
	router  *gin.Engine
}

// New builds the router. store may be nil, in which case read endpoints
// fall back to a fresh update.
func New(store storage.Store, updater Updater, opts Options, logger *slog.Logger) *Server {
	if opts.DigestLimit <= 0 {
		opts.DigestLimit = storage.DefaultLimit
	}
	if opts.BreakingWindow <= 0 {
		opts.BreakingWindow = DefaultBreakingWindow
	}
	if opts.BreakingMinImportance <= 0 {
		opts.BreakingMinImportance = DefaultBreakingMinImportance
	}
	if opts.BreakingFetchLimit <= 0 {
		opts.BreakingFetchLimit = DefaultBreakingFetchLimit
	}
	if opts.Status == nil {
		opts.Status = metrics.Global
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   store,
		updater: updater,
		opts:    opts,
		log:     logger.With("component", "api"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(s.corsMiddleware())
	r.Use(s.requestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/news")
	g.GET("/daily", s.handleDaily)
	g.GET("/breaking", s.handleBreaking)
	g.POST("/update", s.handleUpdate)
	g.GET("/digest", s.handleDigest)
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.opts.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowOrigins
	}
	return cors.New(cfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.opts.Status.GetStats()
	if !s.opts.Status.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "stats": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "stats": stats})
}

// daily returns the stored digest, or a fresh one when any configured
// category has nothing stored.
func (s *Server) daily(ctx context.Context) (map[string][]news.Topic, error) {
	if s.store == nil {
		return s.update(ctx)
	}
	stored, err := storage.FetchDigest(ctx, s.store, s.opts.Categories, s.opts.DigestLimit)
	if err != nil {
		return nil, err
	}
	for _, category := range s.opts.Categories {
		if len(stored[category]) == 0 {
			s.log.Info("stored digest incomplete, running update", "category", category)
			return s.update(ctx)
		}
	}
	return stored, nil
}

func (s *Server) update(ctx context.Context) (map[string][]news.Topic, error) {
	topics, err := s.updater.Update(ctx)
	if err != nil {
		s.opts.Status.SetError(err.Error())
		return nil, fmt.Errorf("update: %w", err)
	}
	return topics, nil
}

func (s *Server) handleDaily(c *gin.Context) {
	topics, err := s.daily(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (s *Server) handleBreaking(c *gin.Context) {
	if s.store == nil {
		s.fail(c, http.StatusServiceUnavailable, errNoStore)
		return
	}
	topics, err := storage.FetchBreaking(c.Request.Context(), s.store, s.opts.Categories,
		s.opts.BreakingFetchLimit, s.opts.BreakingWindow, s.opts.BreakingMinImportance, s.opts.Now())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(digest.Breaking("Breaking news", topics)))
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (s *Server) handleUpdate(c *gin.Context) {
	topics, err := s.update(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	categories := make([]string, 0, len(topics))
	for category := range topics {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	c.JSON(http.StatusOK, gin.H{"status": "updated", "categories": categories})
}

func (s *Server) handleDigest(c *gin.Context) {
	topics, err := s.daily(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	categories := s.opts.Categories
	if len(categories) == 0 {
		for category := range topics {
			categories = append(categories, category)
		}
		sort.Strings(categories)
	}
	md := digest.Markdown("News digest", categories, topics)

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	body, err := digest.HTML(md)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(digest.Page("News digest", body, s.opts.Now())))
}

func (s *Server) fail(c *gin.Context, code int, err error) {
	s.log.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(code, gin.H{"error": err.Error()})
}
