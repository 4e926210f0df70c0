// Package classify assigns categories to articles using ordered keyword
// rules.
package classify

import (
	"fmt"
	"regexp"

	"github.com/deusflow/newstopics/internal/news"
)

// Rule maps a category to the patterns that select it. Patterns are
// regular expressions matched case-insensitively.
type Rule struct {
	Category string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

type compiledRule struct {
	category string
	patterns []*regexp.Regexp
}

// Classifier applies rules in priority order. The first rule with a
// matching pattern wins.
type Classifier struct {
	rules []compiledRule
}

// DefaultRules is the built-in category table, in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "Greece", Patterns: []string{`\bGreece\b`, `Greek`, `Athens`, `Crete`}},
		{Category: "Netherlands", Patterns: []string{`\bNetherlands\b`, `Dutch`, `Amsterdam`, `Rotterdam`}},
		{Category: "Data Science", Patterns: []string{`data science`, `dataset`, `data scientist`, `machine learning`}},
		// "ai" must stand alone, otherwise "said" or "maintain" match
		{Category: "AI", Patterns: []string{`\bAI\b`, `artificial intelligence`, `\bGPT`, `\bLLMs?\b`, `neural network`}},
		{Category: "Finance", Patterns: []string{`bank`, `finance`, `stock`, `economy`, `interest rate`, `bitcoin`, `NASDAQ`, `\bECB\b`}},
	}
}

// New compiles rules. An invalid pattern is reported with its category.
func New(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if r.Category == "" {
			return nil, fmt.Errorf("classification rule without category")
		}
		cr := compiledRule{category: r.Category}
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("category %q: invalid pattern %q: %w", r.Category, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// Categories returns the rule categories in priority order.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.category)
	}
	return out
}

// Match returns the category for text, or news.UnknownCategory.
func (c *Classifier) Match(text string) string {
	for _, r := range c.rules {
		for _, re := range r.patterns {
			if re.MatchString(text) {
				return r.category
			}
		}
	}
	return news.UnknownCategory
}

// Classify fills in the category of every article that has none. Preset
// categories are never overwritten.
func (c *Classifier) Classify(articles []news.Article) {
	for i := range articles {
		if articles[i].Category != "" {
			continue
		}
		articles[i].Category = c.Match(articles[i].Title + " " + articles[i].Description)
	}
}
