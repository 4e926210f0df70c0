// Package score ranks story clusters by publisher coverage and recency.
package score

import (
	"sort"
	"time"

	"github.com/deusflow/newstopics/internal/news"
)

const (
	CoverageWeight = 0.7
	RecencyWeight  = 0.3
)

// Scorer computes batch-relative importance. Scores from different calls
// are not comparable.
type Scorer struct {
	Now func() time.Time
}

func New() *Scorer {
	return &Scorer{Now: time.Now}
}

// Coverage is the number of distinct publishers in c.
func Coverage(c news.Cluster) int {
	seen := make(map[string]struct{}, len(c))
	for _, a := range c {
		seen[a.Publisher] = struct{}{}
	}
	return len(seen)
}

// AgeHours is the age of the most recent article in c. Articles dated in
// the future count as age zero.
func AgeHours(c news.Cluster, now time.Time) float64 {
	age := now.Sub(c.LatestTime()).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// Score returns the clusters paired with their importance, highest first.
// Clusters with equal scores keep their input order.
func (s *Scorer) Score(clusters []news.Cluster) []news.ScoredCluster {
	if len(clusters) == 0 {
		return nil
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	coverages := make([]float64, len(clusters))
	ages := make([]float64, len(clusters))
	maxCov, maxAge := 0.0, 0.0
	for i, c := range clusters {
		coverages[i] = float64(Coverage(c))
		ages[i] = AgeHours(c, now)
		if coverages[i] > maxCov {
			maxCov = coverages[i]
		}
		if ages[i] > maxAge {
			maxAge = ages[i]
		}
	}
	if maxCov == 0 {
		maxCov = 1
	}
	if maxAge == 0 {
		maxAge = 1
	}

	scored := make([]news.ScoredCluster, len(clusters))
	for i, c := range clusters {
		normCov := coverages[i] / maxCov
		normRecency := 1 - ages[i]/maxAge
		scored[i] = news.ScoredCluster{
			Cluster:    c,
			Importance: CoverageWeight*normCov + RecencyWeight*normRecency,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Importance > scored[j].Importance
	})
	return scored
}
