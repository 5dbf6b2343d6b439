package memory

import (
	"os"
	"path/filepath"
	"testing"

	"rl-recommender-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticleRepositoryOrdersById(t *testing.T) {
	repo, err := NewArticleRepository([]*entity.Article{
		{Id: 3, Title: "c"},
		{Id: 1, Title: "a"},
		{Id: 2, Title: "b"},
	})
	require.NoError(t, err)

	all := repo.GetAllArticles()
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].Id, all[1].Id, all[2].Id})

	// Mutating the returned slice must not change the repository order.
	all[0] = all[2]
	assert.Equal(t, 1, repo.GetAllArticles()[0].Id)

	a, ok := repo.GetArticle(2)
	require.True(t, ok)
	assert.Equal(t, "b", a.Title)

	_, ok = repo.GetArticle(42)
	assert.False(t, ok)
}

func TestNewArticleRepositoryRejectsDuplicates(t *testing.T) {
	_, err := NewArticleRepository([]*entity.Article{{Id: 1}, {Id: 1}})
	assert.Error(t, err)
}

func TestLoadArticleRepository(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json list",
			file: "articles.json",
			content: `[
  {"id": 2, "title": "Disk cache", "tags": ["storage"]},
  {"id": 1, "title": "Routing", "tags": ["network"]}
]`,
		},
		{
			name: "yaml document",
			file: "articles.yaml",
			content: `articles:
  - id: 1
    title: Routing
    tags: [network]
  - id: 2
    title: Disk cache
    tags: [storage]
    questions:
      - how do I tune the disk cache
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			repo, err := LoadArticleRepository(path)
			require.NoError(t, err)

			all := repo.GetAllArticles()
			require.Len(t, all, 2)
			assert.Equal(t, 1, all[0].Id)
			assert.Equal(t, []string{"storage"}, all[1].Tags)
		})
	}
}

func TestLoadArticleRepositoryMissingFile(t *testing.T) {
	_, err := LoadArticleRepository(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
