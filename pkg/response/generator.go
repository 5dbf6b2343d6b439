// Package response turns a recommended article into the answer text and
// follow-up suggestions shown to the user.
package response

import (
	"fmt"
	"strings"
	"unicode"

	"rl-recommender-be/internal/entity"
)

type Answer struct {
	Text             string
	SuggestedActions []string
}

type Generator struct {
	maxSentences   int
	maxSuggestions int
}

func NewGenerator() *Generator {
	return &Generator{maxSentences: 2, maxSuggestions: 3}
}

// Generate prefers the article summary and falls back to the opening
// sentences of its content. Low confidence is stated in the text.
func (g *Generator) Generate(question string, article *entity.Article, confidence float64) Answer {
	body := strings.TrimSpace(article.Summary)
	if body == "" {
		body = leadingSentences(article.Content, g.maxSentences)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The article %q looks most relevant", article.Title)
	if q := strings.TrimSpace(question); q != "" {
		fmt.Fprintf(&b, " to %q", q)
	}
	b.WriteString(".")
	if body != "" {
		b.WriteString(" ")
		b.WriteString(body)
	}
	if confidence < 0.3 {
		b.WriteString(" I am not very sure about this match; try rephrasing if it misses the point.")
	}

	return Answer{Text: b.String(), SuggestedActions: g.suggestions(article)}
}

func (g *Generator) suggestions(article *entity.Article) []string {
	out := []string{fmt.Sprintf("Read the full article: %s", article.Title)}
	if article.Category != "" {
		out = append(out, fmt.Sprintf("Browse more articles about %s", article.Category))
	}
	for _, kw := range article.Keywords {
		if len(out) >= g.maxSuggestions {
			break
		}
		out = append(out, fmt.Sprintf("Ask: what is %s?", kw))
	}
	for _, tag := range article.Tags {
		if len(out) >= g.maxSuggestions {
			break
		}
		out = append(out, fmt.Sprintf("Ask a question about %s", tag))
	}
	return out
}

func leadingSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	end, found := 0, 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			next := i + 1
			if next == len(text) || unicode.IsSpace(rune(text[next])) {
				end = next
				found++
				if found == n {
					break
				}
			}
		}
	}
	if end == 0 {
		return text
	}
	return text[:end]
}
