// Package summarize builds short extractive summaries for story clusters.
package summarize

import (
	"sort"
	"strings"

	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/textproc"
)

const DefaultMaxSentences = 2

// Summarizer selects the highest-scoring sentences of a cluster's text.
type Summarizer struct {
	tok          textproc.Tokenizer
	maxSentences int
}

// New returns a summarizer keeping at most maxSentences sentences.
// Non-positive values select DefaultMaxSentences.
func New(tok textproc.Tokenizer, maxSentences int) *Summarizer {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if tok == nil {
		tok = textproc.NewRegex()
	}
	return &Summarizer{tok: tok, maxSentences: maxSentences}
}

// SummarizeCluster joins the descriptions of the cluster (titles where a
// description is missing) and summarizes the result.
func (s *Summarizer) SummarizeCluster(c news.Cluster) string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c))
	for _, a := range c {
		if a.Description != "" {
			parts = append(parts, a.Description)
		} else {
			parts = append(parts, a.Title)
		}
	}
	return s.SummarizeText(strings.Join(parts, " "))
}

// SummarizeText returns the text unchanged (sentence-normalized) when it has
// no more sentences than the limit. Otherwise sentences are scored by the
// mean batch frequency of their non-stopword words and the best ones are
// returned in their original order.
func (s *Summarizer) SummarizeText(text string) string {
	sentences := s.tok.Sentences(text)
	if len(sentences) <= s.maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]int)
	for _, w := range s.tok.Words(text) {
		if s.tok.IsStopword(w) {
			continue
		}
		freq[w]++
	}

	type ranked struct {
		index int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sentence := range sentences {
		total, n := 0, 0
		for _, w := range s.tok.Words(sentence) {
			if s.tok.IsStopword(w) {
				continue
			}
			total += freq[w]
			n++
		}
		scores[i] = ranked{index: i}
		if n > 0 {
			scores[i].score = float64(total) / float64(n)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	picked := make([]int, 0, s.maxSentences)
	for _, r := range scores[:s.maxSentences] {
		picked = append(picked, r.index)
	}
	sort.Ints(picked)

	out := make([]string, 0, len(picked))
	for _, i := range picked {
		out = append(out, sentences[i])
	}
	return strings.Join(out, " ")
}
