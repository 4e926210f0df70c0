package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newstopics/internal/news"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixed() time.Time { return now }

func at(publisher string, hoursAgo float64) news.Article {
	return news.Article{
		Title:     publisher,
		Publisher: publisher,
		Published: now.Add(-time.Duration(hoursAgo * float64(time.Hour))),
	}
}

func TestScoreSingletons(t *testing.T) {
	s := &Scorer{Now: fixed}
	clusters := []news.Cluster{
		{at("Kathimerini", 2)},
		{at("Ekathimerini", 10)},
		{at("ERT", 20)},
		{at("AMNA", 5)},
		{at("Capital.gr", 8)},
	}
	scored := s.Score(clusters)
	require.Len(t, scored, 5)

	want := []struct {
		publisher string
		score     float64
	}{
		{"Kathimerini", 0.97},
		{"AMNA", 0.925},
		{"Capital.gr", 0.88},
		{"Ekathimerini", 0.85},
		{"ERT", 0.7},
	}
	for i, w := range want {
		assert.Equal(t, w.publisher, scored[i].Cluster[0].Publisher)
		assert.InDelta(t, w.score, scored[i].Importance, 1e-9)
	}
}

func TestScoreCoverageDominates(t *testing.T) {
	s := &Scorer{Now: fixed}
	scored := s.Score([]news.Cluster{
		{at("A", 1)},
		{at("A", 1), at("B", 3), at("C", 2)},
		{at("D", 4)},
	})
	require.Len(t, scored, 3)
	assert.Len(t, scored[0].Cluster, 3)
	assert.InDelta(t, 0.7+0.3*0.75, scored[0].Importance, 1e-9)
	for _, sc := range scored {
		assert.GreaterOrEqual(t, sc.Importance, 0.0)
		assert.LessOrEqual(t, sc.Importance, 1.0)
	}
}

func TestScoreMonotoneInCoverage(t *testing.T) {
	s := &Scorer{Now: fixed}
	scored := s.Score([]news.Cluster{
		{at("A", 3)},
		{at("A", 3), at("B", 3)},
		{at("A", 6)},
	})
	byLen := map[int]float64{}
	for _, sc := range scored {
		if sc.Cluster[0].Published.Equal(now.Add(-3 * time.Hour)) {
			byLen[len(sc.Cluster)] = sc.Importance
		}
	}
	assert.Greater(t, byLen[2], byLen[1])
}

func TestScoreDegenerateBatch(t *testing.T) {
	s := &Scorer{Now: fixed}
	assert.Empty(t, s.Score(nil))

	// all articles published now: max age guarded, everything scores 1
	scored := s.Score([]news.Cluster{{at("A", 0)}, {at("B", 0)}})
	require.Len(t, scored, 2)
	assert.InDelta(t, 1.0, scored[0].Importance, 1e-9)
	assert.Equal(t, "A", scored[0].Cluster[0].Publisher)

	// empty publisher names still count as one publisher
	scored = s.Score([]news.Cluster{{at("", 0)}})
	assert.InDelta(t, 1.0, scored[0].Importance, 1e-9)

	// a lone cluster is its own oldest, so recency contributes nothing
	scored = s.Score([]news.Cluster{{at("A", 1)}})
	assert.InDelta(t, 0.7, scored[0].Importance, 1e-9)
}

func TestScoreFutureTimestampsClamp(t *testing.T) {
	s := &Scorer{Now: fixed}
	scored := s.Score([]news.Cluster{{at("A", -2)}, {at("B", 4)}})
	require.Len(t, scored, 2)
	assert.Equal(t, "A", scored[0].Cluster[0].Publisher)
	assert.InDelta(t, 1.0, scored[0].Importance, 1e-9)
	assert.InDelta(t, 0.7, scored[1].Importance, 1e-9)
	assert.Equal(t, 0.0, AgeHours(news.Cluster{at("A", -2)}, now))
}

func TestCoverage(t *testing.T) {
	assert.Equal(t, 2, Coverage(news.Cluster{at("A", 1), at("B", 1), at("A", 2)}))
}
