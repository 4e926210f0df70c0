package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newstopics/internal/news"
)

var published = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func budgetTopic() news.Topic {
	return news.Topic{
		Headline:   "Greek parliament passes budget for 2025",
		Summary:    "The Greek parliament has approved the 2025 budget.",
		Importance: 0.97,
		Published:  published,
		Sources:    []string{"Kathimerini", "Naftemporiki"},
		Links:      []string{"https://a.example/1", "https://b.example/2"},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown("Daily digest", []string{"Greece", "AI"}, map[string][]news.Topic{
		"Greece": {budgetTopic()},
	})

	assert.True(t, strings.HasPrefix(out, "# Daily digest\n\n## Greece\n\n"))
	assert.Contains(t, out, "### 1. Greek parliament passes budget for 2025\n\n")
	assert.Contains(t, out, "The Greek parliament has approved the 2025 budget.\n\n")
	assert.Contains(t, out, "_importance 0.970 | 2025-06-01 10:00 UTC | sources: Kathimerini, Naftemporiki_")
	assert.Contains(t, out, "Read more: [1](https://a.example/1) [2](https://b.example/2)")
	assert.Contains(t, out, "## AI\n\n_No topics yet._")
	assert.Less(t, strings.Index(out, "## Greece"), strings.Index(out, "## AI"))
}

func TestMarkdownEscapesHeadline(t *testing.T) {
	tp := news.Topic{Headline: "Top *10* [data] trends_2025", Importance: 0.5}
	out := Markdown("", []string{"Data Science"}, map[string][]news.Topic{"Data Science": {tp}})
	assert.Contains(t, out, `### 1. Top \*10\* \[data\] trends\_2025`)
	assert.NotContains(t, out, "Read more")
	assert.False(t, strings.HasPrefix(out, "# "))
}

func TestBreaking(t *testing.T) {
	out := Breaking("Breaking", []news.CategoryTopic{{Topic: budgetTopic(), Category: "Greece"}})
	assert.Contains(t, out, "**Greece**\n\n### 1. Greek parliament")

	empty := Breaking("", nil)
	assert.Equal(t, "_Nothing breaking right now._\n", empty)
}

func TestHTML(t *testing.T) {
	out, err := HTML(Markdown("Daily digest", []string{"Greece"}, map[string][]news.Topic{
		"Greece": {budgetTopic()},
	}))
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Daily digest</h1>")
	assert.Contains(t, out, "<h2>Greece</h2>")
	assert.Contains(t, out, "<h3>1. Greek parliament passes budget for 2025</h3>")
	assert.Contains(t, out, `<a href="https://a.example/1">1</a>`)
	assert.Contains(t, out, "<em>importance 0.970")
}

func TestHTMLEscapesMarkup(t *testing.T) {
	tp := news.Topic{Headline: "<script>alert(1)</script>", Importance: 0.1}
	out, err := HTML(Markdown("", []string{"X"}, map[string][]news.Topic{"X": {tp}}))
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestPage(t *testing.T) {
	page := Page("News & views", "<p>body</p>\n", published)
	assert.Contains(t, page, "<title>News &amp; views</title>")
	assert.Contains(t, page, "<p>body</p>")
	assert.Contains(t, page, "Generated 2025-06-01 10:00 UTC")
}
