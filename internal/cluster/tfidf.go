// Package cluster groups near-duplicate articles into story clusters.
//
// Grouping runs in two independent steps: a Vectorizer maps each article
// text to a vector relative to the batch, then a threshold graph over the
// pairwise cosine distances is split into connected components.
package cluster

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/deusflow/newstopics/internal/textproc"
)

// Vectorizer turns a batch of texts into one vector per text. All vectors
// of a batch share the same dimension.
type Vectorizer interface {
	Vectorize(docs []string) []*mat.VecDense
}

// tokenPattern selects runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// TFIDF weighs raw term counts by smoothed inverse document frequency
// idf = ln((1+n)/(1+df)) + 1 and L2-normalizes every row.
type TFIDF struct {
	Stopwords textproc.Stopwords
}

// NewTFIDF returns a vectorizer using the English stop list.
func NewTFIDF() *TFIDF {
	return &TFIDF{Stopwords: textproc.VectorStopwords()}
}

var _ Vectorizer = (*TFIDF)(nil)

// Tokens returns the lower-case terms of doc with stopwords removed.
func (v *TFIDF) Tokens(doc string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	out := raw[:0]
	for _, t := range raw {
		if v.Stopwords != nil && v.Stopwords.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Vectorize builds the batch vocabulary and returns one normalized TF-IDF
// vector per document. A document without terms maps to the zero vector.
func (v *TFIDF) Vectorize(docs []string) []*mat.VecDense {
	if len(docs) == 0 {
		return nil
	}

	counts := make([]map[string]float64, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]float64)
		for _, t := range v.Tokens(doc) {
			if counts[i][t] == 0 {
				df[t]++
			}
			counts[i][t]++
		}
	}

	vocab := make([]string, 0, len(df))
	for t := range df {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	index := make(map[string]int, len(vocab))
	for i, t := range vocab {
		index[t] = i
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	// mat vectors cannot be empty
	dim := len(vocab)
	if dim == 0 {
		dim = 1
	}

	out := make([]*mat.VecDense, len(docs))
	for i := range docs {
		vec := mat.NewVecDense(dim, nil)
		for t, c := range counts[i] {
			j := index[t]
			vec.SetVec(j, c*idf[j])
		}
		if norm := mat.Norm(vec, 2); norm > 0 {
			vec.ScaleVec(1/norm, vec)
		}
		out[i] = vec
	}
	return out
}
