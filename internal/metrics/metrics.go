package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newstopics"

var (
	articlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "articles_total",
		Help:      "Articles processed by the pipeline, by category",
	}, []string{"category"})

	topicsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "topics_total",
		Help:      "Topics emitted by the pipeline, by category",
	}, []string{"category"})

	clustersFormed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "clusters_per_category",
		Help:      "Number of story clusters found per category and run",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
	}, []string{"category"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full pipeline run",
		Buckets:   prometheus.DefBuckets,
	})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "save_failures_total",
		Help:      "Failed topic saves, by category",
	}, []string{"category"})

	feedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "feed_fetches_total",
		Help:      "Feed fetch attempts by outcome (ok, error, cached)",
	}, []string{"outcome"})
)

func RecordArticles(category string, n int) {
	articlesIngested.WithLabelValues(category).Add(float64(n))
}

func RecordTopics(category string, n int) {
	topicsProduced.WithLabelValues(category).Add(float64(n))
}

func RecordClusters(category string, n int) {
	clustersFormed.WithLabelValues(category).Observe(float64(n))
}

func RecordPersistFailure(category string) {
	persistFailures.WithLabelValues(category).Inc()
}

func RecordFeedFetch(outcome string) {
	feedFetches.WithLabelValues(outcome).Inc()
}

// Status tracks run health for the /health endpoint.
type Status struct {
	mu sync.RWMutex

	RunCount              int64
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Status{IsHealthy: true}

// RecordRun stores the duration of a completed pipeline run and marks the
// service healthy.
func (s *Status) RecordRun(duration time.Duration) {
	runDuration.Observe(duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.RunCount++
	s.LastProcessingTime = duration
	s.TotalProcessingTime += duration
	s.AverageProcessingTime = s.TotalProcessingTime / time.Duration(s.RunCount)
	s.LastRunTime = time.Now()
	s.IsHealthy = true
}

func (s *Status) SetError(err string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastError = err
	s.LastErrorTime = time.Now()
	s.IsHealthy = false
}

func (s *Status) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IsHealthy
}

func (s *Status) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"run_count":                  s.RunCount,
		"last_processing_time_ms":    s.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": s.AverageProcessingTime.Milliseconds(),
		"last_error":                 s.LastError,
		"is_healthy":                 s.IsHealthy,
	}
	if !s.LastRunTime.IsZero() {
		stats["last_run_time"] = s.LastRunTime.UTC().Format(time.RFC3339)
	}
	if !s.LastErrorTime.IsZero() {
		stats["last_error_time"] = s.LastErrorTime.UTC().Format(time.RFC3339)
	}
	return stats
}
