package entity

import "strings"

// Article is one corpus entry. Id is stable for the process lifetime and
// defines the action ordering.
type Article struct {
	Id        int      `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Content   string   `json:"content" yaml:"content"`
	Summary   string   `json:"summary,omitempty" yaml:"summary"`
	Category  string   `json:"category,omitempty" yaml:"category"`
	Tags      []string `json:"tags,omitempty" yaml:"tags"`
	Keywords  []string `json:"keywords,omitempty" yaml:"keywords"`
	Questions []string `json:"questions,omitempty" yaml:"questions"` // question templates bound to this article
	URL       string   `json:"url,omitempty" yaml:"url"`
}

// Text is the full searchable text of the article.
func (a *Article) Text() string {
	parts := []string{a.Title, a.Summary, a.Content, a.Category}
	parts = append(parts, a.Tags...)
	parts = append(parts, a.Keywords...)
	return strings.Join(parts, " ")
}

// Labels are the tags and keywords used by tag-overlap scoring.
func (a *Article) Labels() []string {
	labels := make([]string, 0, len(a.Tags)+len(a.Keywords))
	labels = append(labels, a.Tags...)
	labels = append(labels, a.Keywords...)
	return labels
}
