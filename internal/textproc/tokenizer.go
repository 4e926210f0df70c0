// Package textproc provides sentence and word tokenization for the
// summarizer. Two variants exist: a linguistic tokenizer backed by a full
// stopword corpus and abbreviation-aware sentence splitting, and a plain
// regex tokenizer with a short stopword list. The variant is chosen once at
// startup with Select.
package textproc

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// Mode selects a tokenizer variant.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeLinguistic Mode = "linguistic"
	ModeRegex      Mode = "regex"
)

// Tokenizer splits text into sentences and lower-case words.
type Tokenizer interface {
	Name() string
	Sentences(text string) []string
	Words(text string) []string
	IsStopword(word string) bool
}

// Select builds the tokenizer for mode. Auto prefers the linguistic variant
// and falls back to regex when its stopword corpus cannot be loaded.
func Select(mode Mode, stopwordsPath string, logger *slog.Logger) (Tokenizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch mode {
	case ModeRegex:
		return NewRegex(), nil
	case ModeLinguistic:
		sw, err := LoadStopwords(stopwordsPath)
		if err != nil {
			return nil, fmt.Errorf("linguistic tokenizer: %w", err)
		}
		return NewLinguistic(sw), nil
	case ModeAuto, "":
		sw, err := LoadStopwords(stopwordsPath)
		if err != nil {
			logger.Warn("stopword corpus unavailable, using regex tokenizer", "path", stopwordsPath, "error", err)
			return NewRegex(), nil
		}
		return NewLinguistic(sw), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer mode %q", mode)
	}
}

// Regex is the fallback tokenizer: ASCII words and punctuation-based
// sentence boundaries.
type Regex struct {
	stopwords Stopwords
}

var asciiWord = regexp.MustCompile(`[A-Za-z]+`)

func NewRegex() *Regex {
	return &Regex{stopwords: NewStopwords(fallbackStopwords...)}
}

func (r *Regex) Name() string { return string(ModeRegex) }

// Sentences splits after '.', '!' or '?' when followed by whitespace.
func (r *Regex) Sentences(text string) []string {
	return splitSentences(text, nil)
}

func (r *Regex) Words(text string) []string {
	return asciiWord.FindAllString(strings.ToLower(text), -1)
}

func (r *Regex) IsStopword(word string) bool { return r.stopwords.Contains(word) }

// Linguistic handles Unicode words, contractions and common abbreviations.
type Linguistic struct {
	stopwords Stopwords
}

func NewLinguistic(sw Stopwords) *Linguistic {
	return &Linguistic{stopwords: sw}
}

func (l *Linguistic) Name() string { return string(ModeLinguistic) }

func (l *Linguistic) Sentences(text string) []string {
	return splitSentences(text, isAbbreviationBoundary)
}

// Words returns lower-case runs of letters and digits. Possessive and
// contraction suffixes are dropped unless the full form is a stopword.
func (l *Linguistic) Words(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		w := strings.Trim(b.String(), "'")
		b.Reset()
		if w == "" {
			return
		}
		if i := strings.IndexByte(w, '\''); i > 0 && !l.stopwords.Contains(w) {
			w = w[:i]
		}
		out = append(out, w)
	}
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' && b.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}

func (l *Linguistic) IsStopword(word string) bool { return l.stopwords.Contains(word) }

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "inc": {}, "ltd": {},
	"co": {}, "corp": {}, "gen": {}, "gov": {}, "sen": {}, "rep": {},
	"u.s": {}, "u.k": {}, "no": {}, "fig": {}, "approx": {}, "dept": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {},
	"aug": {}, "sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// isAbbreviationBoundary reports whether the period ending word does not
// close a sentence.
func isAbbreviationBoundary(word string, next rune) bool {
	w := strings.ToLower(strings.TrimRight(strings.TrimLeft(word, "\"'“‘(["), "."))
	if w == "" {
		return false
	}
	if _, ok := abbreviations[w]; ok {
		return true
	}
	r := []rune(w)
	if len(r) == 1 && unicode.IsLetter(r[0]) {
		return true
	}
	return unicode.IsLower(next)
}

// splitSentences cuts text after runs of terminal punctuation followed by
// whitespace. keep, when set, can veto a cut after a period given the word
// that ends with it and the first rune of the next segment.
func splitSentences(text string, keep func(word string, next rune) bool) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		if keep != nil {
			for end < len(runes) && strings.ContainsRune(".!?\"'”’)]", runes[end]) {
				end++
			}
		}
		if end >= len(runes) || !unicode.IsSpace(runes[end]) {
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if keep != nil && r == '.' && next < len(runes) {
			wordStart := i
			for wordStart > start && !unicode.IsSpace(runes[wordStart-1]) {
				wordStart--
			}
			if keep(string(runes[wordStart:i+1]), runes[next]) {
				i = end - 1
				continue
			}
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = next
		i = next - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
