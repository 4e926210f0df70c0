package textproc

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

//go:embed data/english.txt
var englishCorpus string

//go:embed data/vector_english.txt
var vectorCorpus string

// fallbackStopwords is the short list used when no corpus is available.
var fallbackStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has",
	"he", "in", "is", "it", "its", "of", "on", "that", "the", "to", "was",
	"were", "will", "with",
}

// Stopwords is a set of lower-case words ignored by frequency scoring.
type Stopwords map[string]struct{}

// NewStopwords builds a set from a word list.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Contains reports whether the lower-cased word is in the set.
func (s Stopwords) Contains(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// ParseStopwords reads one word per line. Blank lines and lines starting
// with '#' are skipped.
func ParseStopwords(r io.Reader) (Stopwords, error) {
	s := make(Stopwords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("stopword corpus is empty")
	}
	return s, nil
}

// LoadStopwords loads the linguistic stopword corpus from path, or the
// embedded English corpus when path is empty.
func LoadStopwords(path string) (Stopwords, error) {
	if path == "" {
		return ParseStopwords(strings.NewReader(englishCorpus))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stopwords %s: %w", path, err)
	}
	defer f.Close()
	return ParseStopwords(f)
}

var (
	vectorOnce  sync.Once
	vectorWords Stopwords
)

// VectorStopwords returns the English stop list applied before TF-IDF
// vectorization. The set is shared and must not be modified.
func VectorStopwords() Stopwords {
	vectorOnce.Do(func() {
		s, err := ParseStopwords(strings.NewReader(vectorCorpus))
		if err != nil {
			s = NewStopwords(fallbackStopwords...)
		}
		vectorWords = s
	})
	return vectorWords
}
