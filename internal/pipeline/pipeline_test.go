package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newstopics/internal/classify"
	"github.com/deusflow/newstopics/internal/cluster"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/score"
	"github.com/deusflow/newstopics/internal/source"
	"github.com/deusflow/newstopics/internal/storage"
	"github.com/deusflow/newstopics/internal/summarize"
	"github.com/deusflow/newstopics/internal/textproc"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, store storage.Store, persist bool) *Pipeline {
	t.Helper()
	c, err := classify.New(classify.DefaultRules())
	require.NoError(t, err)
	return New(Deps{
		Classifier: c,
		Grouper:    cluster.NewGrouper(0.5, 1),
		Scorer:     &score.Scorer{Now: func() time.Time { return now }},
		Summarizer: summarize.New(textproc.NewRegex(), 2),
		Store:      store,
	}, Options{TopN: 4, Workers: 2, Persist: persist})
}

func TestRunSampleBatch(t *testing.T) {
	p := newPipeline(t, nil, false)
	out, err := p.Run(context.Background(), source.SampleArticles(now))
	require.NoError(t, err)
	require.Len(t, out, 5)

	for category, topics := range out {
		assert.Len(t, topics, 4, category)
		for i := 1; i < len(topics); i++ {
			assert.GreaterOrEqual(t, topics[i-1].Importance, topics[i].Importance, category)
		}
	}

	greece := out["Greece"]
	var headlines []string
	var scores []float64
	for _, tp := range greece {
		headlines = append(headlines, tp.Headline)
		scores = append(scores, tp.Importance)
	}
	assert.Equal(t, []string{
		"Greek parliament passes budget for 2025",
		"Greece and Turkey discuss maritime dispute",
		"Greek stock market leaps after EU funds release",
		"Wildfires hit Greek islands again",
	}, headlines)
	assert.Equal(t, []float64{0.97, 0.925, 0.88, 0.85}, scores)

	first := greece[0]
	assert.Equal(t, []string{"Kathimerini"}, first.Sources)
	assert.Equal(t, []string{"https://news.example.com/greece/budget-2025"}, first.Links)
	assert.Equal(t, now.Add(-2*time.Hour), first.Published)
	assert.Equal(t, "The Greek parliament has approved the 2025 budget, focusing on investment and social spending.", first.Summary)
}

func TestRunMergesNearDuplicates(t *testing.T) {
	articles := []news.Article{
		{Title: "Greek parliament passes budget for 2025", Link: "https://a.example/1", Publisher: "Kathimerini", Published: now.Add(-2 * time.Hour)},
		{Title: "Greek parliament approves 2025 budget bill", Link: "https://b.example/2", Publisher: "Naftemporiki", Published: now.Add(-1 * time.Hour)},
		{Title: "Wildfires hit Greek islands again", Link: "https://c.example/3", Publisher: "ERT", Published: now.Add(-10 * time.Hour)},
		{Title: "Greece and Turkey discuss maritime dispute", Link: "https://d.example/4", Publisher: "AMNA", Published: now.Add(-5 * time.Hour)},
		{Title: "Greece's tourism numbers reach record high", Link: "https://e.example/5", Publisher: "ERT", Published: now.Add(-20 * time.Hour)},
	}
	p := newPipeline(t, nil, false)
	out, err := p.Run(context.Background(), articles)
	require.NoError(t, err)

	greece := out["Greece"]
	require.Len(t, greece, 4)
	top := greece[0]
	assert.Equal(t, "Greek parliament approves 2025 budget bill", top.Headline)
	assert.Equal(t, []string{"Kathimerini", "Naftemporiki"}, top.Sources)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, top.Links)
	assert.InDelta(t, 0.985, top.Importance, 1e-9)
	assert.Equal(t, "Greek parliament passes budget for 2025 Greek parliament approves 2025 budget bill", top.Summary)

	// input untouched
	assert.Empty(t, articles[0].Category)
}

func TestRunUnknownAndPresetCategories(t *testing.T) {
	p := newPipeline(t, nil, false)
	out, err := p.Run(context.Background(), []news.Article{
		{Title: "Local bakery opens", Publisher: "X", Published: now},
		{Title: "Dutch tax reform", Publisher: "Y", Published: now, Category: "Custom"},
	})
	require.NoError(t, err)
	assert.Len(t, out[news.UnknownCategory], 1)
	assert.Len(t, out["Custom"], 1)
	assert.NotContains(t, out, "Netherlands")
}

func TestRunEmptyBatch(t *testing.T) {
	out, err := newPipeline(t, nil, false).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t, nil, false).Run(ctx, source.SampleArticles(now))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCategoryIndependence(t *testing.T) {
	all := source.SampleArticles(now)
	var greeceOnly []news.Article
	for _, a := range all {
		if a.Category == "Greece" {
			greeceOnly = append(greeceOnly, a)
		}
	}
	full, err := newPipeline(t, nil, false).Run(context.Background(), all)
	require.NoError(t, err)
	alone, err := newPipeline(t, nil, false).Run(context.Background(), greeceOnly)
	require.NoError(t, err)
	assert.Equal(t, alone["Greece"], full["Greece"])
}

type failingStore struct {
	mu    sync.Mutex
	calls []string
}

func (f *failingStore) SaveTopics(_ context.Context, category string, _ []news.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, category)
	return errors.New("disk full")
}

func (f *failingStore) FetchTop(context.Context, string, int) ([]news.Topic, error) {
	return nil, nil
}

func (f *failingStore) Close() error { return nil }

func TestRunPersistenceFailureIsSwallowed(t *testing.T) {
	store := &failingStore{}
	out, err := newPipeline(t, store, true).Run(context.Background(), source.SampleArticles(now))
	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.ElementsMatch(t, []string{"Greece", "Netherlands", "Data Science", "AI", "Finance"}, store.calls)
}

func TestRunPersistsTopics(t *testing.T) {
	store, err := storage.OpenFile(filepath.Join(t.TempDir(), "topics.json"), nil)
	require.NoError(t, err)

	out, err := newPipeline(t, store, true).Run(context.Background(), source.SampleArticles(now))
	require.NoError(t, err)

	stored, err := store.FetchTop(context.Background(), "Finance", 4)
	require.NoError(t, err)
	assert.Equal(t, out["Finance"], stored)

	// without Persist nothing is written
	_, err = newPipeline(t, store, false).Run(context.Background(), source.SampleArticles(now))
	require.NoError(t, err)
	assert.Equal(t, 4, store.Stats()["Finance"])
}

func TestTopNCap(t *testing.T) {
	var articles []news.Article
	for i := 0; i < 10; i++ {
		articles = append(articles, news.Article{
			Title:     fmt.Sprintf("Unique%d story%d", i, i),
			Publisher: fmt.Sprintf("P%d", i),
			Published: now.Add(-time.Duration(i) * time.Hour),
			Category:  "Finance",
		})
	}
	c, err := classify.New(classify.DefaultRules())
	require.NoError(t, err)
	p := New(Deps{Classifier: c, Scorer: &score.Scorer{Now: func() time.Time { return now }}}, Options{TopN: 3})
	out, err := p.Run(context.Background(), articles)
	require.NoError(t, err)
	require.Len(t, out["Finance"], 3)
	assert.Equal(t, "Unique0 story0", out["Finance"][0].Headline)
}

func TestBuildTopic(t *testing.T) {
	sc := news.ScoredCluster{
		Cluster: news.Cluster{
			{Title: "older", Link: "l1", Publisher: "B", Published: now.Add(-time.Hour)},
			{Title: "newest", Link: "l2", Publisher: "A", Published: now},
			{Title: "tie", Link: "l3", Publisher: "B", Published: now},
		},
		Importance: 0.83333333,
	}
	tp := BuildTopic(sc, "sum")
	assert.Equal(t, "newest", tp.Headline)
	assert.Equal(t, 0.833, tp.Importance)
	assert.Equal(t, now, tp.Published)
	assert.Equal(t, []string{"A", "B"}, tp.Sources)
	assert.Equal(t, []string{"l1", "l2", "l3"}, tp.Links)
	assert.Equal(t, "sum", tp.Summary)
}
