package response

import (
	"testing"

	"rl-recommender-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUsesSummary(t *testing.T) {
	a := &entity.Article{Title: "Disk cache tuning", Summary: "Size the cache to the hot set.", Category: "storage", Keywords: []string{"page cache", "lru"}}

	ans := NewGenerator().Generate("How do I size the disk cache?", a, 0.9)

	assert.Equal(t, `The article "Disk cache tuning" looks most relevant to "How do I size the disk cache?". Size the cache to the hot set.`, ans.Text)
	assert.Equal(t, []string{
		"Read the full article: Disk cache tuning",
		"Browse more articles about storage",
		"Ask: what is page cache?",
	}, ans.SuggestedActions)
}

func TestGenerateFallsBackToContent(t *testing.T) {
	a := &entity.Article{Title: "Routing", Content: "Routers forward packets.  They use tables! Third sentence here.", Tags: []string{"network"}}

	ans := NewGenerator().Generate("", a, 0.1)

	assert.Contains(t, ans.Text, "Routers forward packets. They use tables!")
	assert.NotContains(t, ans.Text, "Third sentence")
	assert.Contains(t, ans.Text, "not very sure")
	assert.Equal(t, []string{"Read the full article: Routing", "Ask a question about network"}, ans.SuggestedActions)
}

func TestLeadingSentences(t *testing.T) {
	assert.Equal(t, "No terminator", leadingSentences("No terminator", 2))
	assert.Equal(t, "v1.2 is out.", leadingSentences("v1.2 is out. More", 1))
	assert.Equal(t, "", leadingSentences("   ", 2))
}
