package contract

import (
	"errors"

	"rl-recommender-be/internal/entity"
)

var ErrArticleNotFound = errors.New("article not found")

// ArticleRepository is the read-only corpus. GetAllArticles returns the same
// order on every call for the lifetime of the process.
type ArticleRepository interface {
	GetArticle(id int) (*entity.Article, bool)
	GetAllArticles() []*entity.Article
}
