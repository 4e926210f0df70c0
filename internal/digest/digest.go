// Package digest renders ranked topics as a Markdown or HTML news digest.
package digest

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/deusflow/newstopics/internal/news"
)

const timeLayout = "2006-01-02 15:04 MST"

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"`", "\\`",
	"#", `\#`,
	"<", "&lt;",
	">", "&gt;",
)

// Markdown renders topics grouped by category in the given order. A
// category with no topics gets a placeholder line.
func Markdown(title string, categories []string, topics map[string][]news.Topic) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", escape(title))
	}
	for _, category := range categories {
		fmt.Fprintf(&b, "## %s\n\n", escape(category))
		list := topics[category]
		if len(list) == 0 {
			b.WriteString("_No topics yet._\n\n")
			continue
		}
		for i, t := range list {
			b.WriteString(formatTopic(t, i+1))
		}
	}
	return b.String()
}

// Breaking renders breaking topics as one flat list, each tagged with its
// category.
func Breaking(title string, topics []news.CategoryTopic) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", escape(title))
	}
	if len(topics) == 0 {
		b.WriteString("_Nothing breaking right now._\n")
		return b.String()
	}
	for i, ct := range topics {
		fmt.Fprintf(&b, "**%s**\n\n", escape(ct.Category))
		b.WriteString(formatTopic(ct.Topic, i+1))
	}
	return b.String()
}

func formatTopic(t news.Topic, number int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %d. %s\n\n", number, escape(t.Headline))
	if t.Summary != "" {
		b.WriteString(escape(t.Summary))
		b.WriteString("\n\n")
	}

	meta := []string{fmt.Sprintf("importance %.3f", t.Importance)}
	if !t.Published.IsZero() {
		meta = append(meta, t.Published.UTC().Format(timeLayout))
	}
	if len(t.Sources) > 0 {
		meta = append(meta, "sources: "+escape(strings.Join(t.Sources, ", ")))
	}
	fmt.Fprintf(&b, "_%s_\n\n", strings.Join(meta, " | "))

	if len(t.Links) > 0 {
		links := make([]string, 0, len(t.Links))
		for i, l := range t.Links {
			links = append(links, fmt.Sprintf("[%d](%s)", i+1, l))
		}
		fmt.Fprintf(&b, "Read more: %s\n\n", strings.Join(links, " "))
	}
	return b.String()
}

func escape(s string) string {
	return escaper.Replace(s)
}

// HTML converts a Markdown digest to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Page wraps an HTML fragment in a minimal standalone document.
func Page(title, body string, generated time.Time) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", stdhtml.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	fmt.Fprintf(&b, "<footer>Generated %s</footer>\n", generated.UTC().Format(timeLayout))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
