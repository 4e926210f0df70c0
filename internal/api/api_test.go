package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newstopics/internal/metrics"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeUpdater struct {
	store  storage.Store
	topics map[string][]news.Topic
	err    error
	calls  int
}

func (f *fakeUpdater) Update(ctx context.Context) (map[string][]news.Topic, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.store != nil {
		for category, topics := range f.topics {
			if err := f.store.SaveTopics(ctx, category, topics); err != nil {
				return nil, err
			}
		}
	}
	return f.topics, nil
}

func topic(headline string, importance float64, age time.Duration) news.Topic {
	return news.Topic{
		Headline:   headline,
		Summary:    headline + ".",
		Importance: importance,
		Published:  now.Add(-age),
		Sources:    []string{"ERT"},
		Links:      []string{"https://news.example.com/" + strings.ReplaceAll(headline, " ", "-")},
	}
}

func fresh() map[string][]news.Topic {
	return map[string][]news.Topic{
		"Greece": {topic("budget passes", 0.97, 30*time.Minute), topic("wildfires", 0.85, 10*time.Hour)},
		"AI":     {topic("new model", 0.75, 20*time.Minute), topic("safety debate", 0.4, 2*time.Hour)},
	}
}

type fixture struct {
	server  *Server
	store   *storage.FileStore
	updater *fakeUpdater
	status  *metrics.Status
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenFile(filepath.Join(t.TempDir(), "topics.json"), nil)
	require.NoError(t, err)
	updater := &fakeUpdater{store: store, topics: fresh()}
	status := &metrics.Status{IsHealthy: true}
	srv := New(store, updater, Options{
		Categories: []string{"Greece", "AI"},
		Status:     status,
		Now:        func() time.Time { return now },
	}, nil)
	return &fixture{server: srv, store: store, updater: updater, status: status}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestDailyRunsUpdateWhenStoreIncomplete(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/news/daily")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.updater.calls)

	var got map[string][]news.Topic
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got["Greece"], 2)
	assert.Equal(t, "budget passes", got["Greece"][0].Headline)

	// the update persisted, so the second call is served from the store
	w = f.do(http.MethodGet, "/news/daily")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.updater.calls)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "new model", got["AI"][0].Headline)
}

func TestDailyUpdateFailure(t *testing.T) {
	f := newFixture(t)
	f.updater.err = errors.New("feeds down")

	w := f.do(http.MethodGet, "/news/daily")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"update: feeds down"`)
	assert.False(t, f.status.Healthy())

	w = f.do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}

func TestBreaking(t *testing.T) {
	f := newFixture(t)
	_, err := f.updater.Update(context.Background())
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/news/breaking")
	require.Equal(t, http.StatusOK, w.Code)

	var got []news.CategoryTopic
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Greece", got[0].Category)
	assert.Equal(t, "budget passes", got[0].Headline)
	assert.Equal(t, "AI", got[1].Category)
	assert.Equal(t, "new model", got[1].Headline)

	w = f.do(http.MethodGet, "/news/breaking?format=markdown")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "# Breaking news\n\n**Greece**\n\n### 1. budget passes"), body)
	assert.Contains(t, body, "**AI**\n\n### 2. new model")
	assert.NotContains(t, body, "wildfires")
}

func TestBreakingMarkdownEmpty(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/news/breaking?format=markdown")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Breaking news\n\n_Nothing breaking right now._\n", w.Body.String())
}

func TestBreakingWithoutStore(t *testing.T) {
	srv := New(nil, &fakeUpdater{}, Options{Status: &metrics.Status{IsHealthy: true}}, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/news/breaking", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"storage is disabled"}`, w.Body.String())
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/news/update")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"updated","categories":["AI","Greece"]}`, w.Body.String())
	assert.Equal(t, map[string]int{"Greece": 2, "AI": 2}, f.store.Stats())

	w = f.do(http.MethodGet, "/news/update")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDigest(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/news/digest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<h2>Greece</h2>")
	assert.Contains(t, body, "<h3>1. budget passes</h3>")
	assert.Less(t, strings.Index(body, "<h2>Greece</h2>"), strings.Index(body, "<h2>AI</h2>"))

	w = f.do(http.MethodGet, "/news/digest?format=markdown")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "## AI\n\n### 1. new model")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Status string         `json:"status"`
		Stats  map[string]any `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, true, got.Stats["is_healthy"])

	metrics.RecordArticles("Greece", 3)
	w = f.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "newstopics_pipeline_articles_total")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://reader.example")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	srv := New(nil, &fakeUpdater{}, Options{
		AllowOrigins: []string{"https://reader.example"},
		Status:       &metrics.Status{IsHealthy: true},
	}, nil)
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://other.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
