package cluster

import (
	"sort"

	"github.com/deusflow/newstopics/internal/news"
)

const (
	DefaultEps          = 0.5
	DefaultMinNeighbors = 1
)

// Grouper clusters the articles of one category.
type Grouper struct {
	Vectorizer   Vectorizer
	Eps          float64
	MinNeighbors int
}

// NewGrouper returns a TF-IDF grouper. Non-positive arguments select the
// defaults.
func NewGrouper(eps float64, minNeighbors int) *Grouper {
	if eps <= 0 {
		eps = DefaultEps
	}
	if minNeighbors <= 0 {
		minNeighbors = DefaultMinNeighbors
	}
	return &Grouper{Vectorizer: NewTFIDF(), Eps: eps, MinNeighbors: minNeighbors}
}

// Group partitions articles into clusters. Clusters are ordered by their
// most recent article, newest first; articles keep input order inside a
// cluster.
func (g *Grouper) Group(articles []news.Article) []news.Cluster {
	if len(articles) == 0 {
		return nil
	}

	docs := make([]string, len(articles))
	for i, a := range articles {
		docs[i] = a.Text()
	}
	dist := DistanceMatrix(g.Vectorizer.Vectorize(docs))

	groups := Components(dist, g.Eps, g.MinNeighbors)
	clusters := make([]news.Cluster, 0, len(groups))
	for _, grp := range groups {
		c := make(news.Cluster, 0, len(grp))
		for _, i := range grp {
			c = append(c, articles[i])
		}
		clusters = append(clusters, c)
	}

	// groups come ordered by first member, so a stable sort breaks ties on it
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].LatestTime().After(clusters[j].LatestTime())
	})
	return clusters
}
