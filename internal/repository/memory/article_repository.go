package memory

import (
	"fmt"
	"os"
	"sort"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/repository/contract"

	"gopkg.in/yaml.v3"
)

type ArticleRepository struct {
	articles []*entity.Article
	byId     map[int]*entity.Article
}

// NewArticleRepository freezes the corpus, ordered by article id.
func NewArticleRepository(articles []*entity.Article) (*ArticleRepository, error) {
	sorted := make([]*entity.Article, 0, len(articles))
	byId := make(map[int]*entity.Article, len(articles))
	for _, a := range articles {
		if a == nil {
			continue
		}
		if _, dup := byId[a.Id]; dup {
			return nil, fmt.Errorf("duplicate article id %d", a.Id)
		}
		byId[a.Id] = a
		sorted = append(sorted, a)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Id < sorted[j].Id })

	return &ArticleRepository{articles: sorted, byId: byId}, nil
}

// corpusFile accepts both a bare list and an {"articles": [...]} document.
type corpusFile struct {
	Articles []*entity.Article `yaml:"articles"`
}

// LoadArticleRepository reads a YAML or JSON corpus file.
func LoadArticleRepository(path string) (*ArticleRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var list []*entity.Article
	if err := yaml.Unmarshal(raw, &list); err != nil {
		var doc corpusFile
		if docErr := yaml.Unmarshal(raw, &doc); docErr != nil {
			return nil, fmt.Errorf("parse corpus %s: %w", path, err)
		}
		list = doc.Articles
	}

	return NewArticleRepository(list)
}

func (r *ArticleRepository) GetArticle(id int) (*entity.Article, bool) {
	a, ok := r.byId[id]
	return a, ok
}

func (r *ArticleRepository) GetAllArticles() []*entity.Article {
	out := make([]*entity.Article, len(r.articles))
	copy(out, r.articles)
	return out
}

var _ contract.ArticleRepository = (*ArticleRepository)(nil)
