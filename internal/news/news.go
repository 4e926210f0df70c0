// Package news holds the data types shared by every stage of the topic
// pipeline.
package news

import (
	"sort"
	"time"
)

// UnknownCategory is assigned to articles that match no classification rule.
const UnknownCategory = "Unknown"

// Article is a single normalized news item.
type Article struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Published   time.Time `json:"published"`
	Publisher   string    `json:"publisher"`
	Category    string    `json:"category,omitempty"`
}

// Text returns the body used for similarity: title and description.
func (a Article) Text() string {
	if a.Description == "" {
		return a.Title
	}
	return a.Title + " " + a.Description
}

// Cluster is a group of articles of one category judged to describe the
// same story. Article order is the order of the input batch.
type Cluster []Article

// Latest returns the index of the most recent article. On equal timestamps
// the earliest position wins. Returns -1 for an empty cluster.
func (c Cluster) Latest() int {
	best := -1
	for i, a := range c {
		if best < 0 || a.Published.After(c[best].Published) {
			best = i
		}
	}
	return best
}

// LatestTime returns the publication time of the most recent article.
func (c Cluster) LatestTime() time.Time {
	i := c.Latest()
	if i < 0 {
		return time.Time{}
	}
	return c[i].Published
}

// Publishers returns the distinct publishers of the cluster, sorted.
func (c Cluster) Publishers() []string {
	seen := make(map[string]struct{}, len(c))
	out := make([]string, 0, len(c))
	for _, a := range c {
		if _, ok := seen[a.Publisher]; ok {
			continue
		}
		seen[a.Publisher] = struct{}{}
		out = append(out, a.Publisher)
	}
	sort.Strings(out)
	return out
}

// Links returns every article link in cluster order.
func (c Cluster) Links() []string {
	out := make([]string, 0, len(c))
	for _, a := range c {
		out = append(out, a.Link)
	}
	return out
}

// ScoredCluster pairs a cluster with its importance. Importance values are
// only comparable within the scoring call that produced them.
type ScoredCluster struct {
	Cluster    Cluster
	Importance float64
}

// Topic is the final presentation unit produced per cluster.
type Topic struct {
	Headline   string    `json:"headline"`
	Summary    string    `json:"summary"`
	Importance float64   `json:"importance"`
	Published  time.Time `json:"published"`
	Sources    []string  `json:"sources"`
	Links      []string  `json:"links"`
}

// CategoryTopic is a topic annotated with the category it was stored under.
type CategoryTopic struct {
	Topic
	Category string `json:"category"`
}

// Partition groups articles by category, keeping input order within each
// group. The returned key slice lists categories in first-seen order.
func Partition(articles []Article) (map[string][]Article, []string) {
	groups := make(map[string][]Article)
	var order []string
	for _, a := range articles {
		if _, ok := groups[a.Category]; !ok {
			order = append(order, a.Category)
		}
		groups[a.Category] = append(groups[a.Category], a)
	}
	return groups, order
}
