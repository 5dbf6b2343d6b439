package memory

import (
	"rl-recommender-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds the latest snapshot of every session. Sessions live
// for the process lifetime, so nothing expires and no janitor runs.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	c := cache.New(cache.NoExpiration, 0)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *entity.Session) {
	r.cache.Set(session.UserId, session, cache.NoExpiration)
}

func (r *SessionRepository) Get(userId string) (*entity.Session, bool) {
	if x, found := r.cache.Get(userId); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
