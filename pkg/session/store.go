// Package session keeps the per-user interaction log and its derived stats.
//
// Every mutation is committed to the database before it becomes visible in
// memory, so an acknowledged interaction survives a restart. Mutations for
// one user are serialised end to end; readers get immutable snapshots and
// never block.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/memory"
	"rl-recommender-be/internal/repository/specification"
	"rl-recommender-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const logModule = "SESSION"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidUser     = errors.New("user id is required")
)

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *memory.SessionRepository
	logger     logger.ILogger
	locks      sync.Map // user id -> *sync.Mutex
	now        func() time.Time
}

func NewStore(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		uowFactory: uowFactory,
		sessions:   memory.NewSessionRepository(),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) lockFor(userId string) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(userId, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// Load replaces the in-memory view with every persisted session and its
// ordered interactions. Stats are rebuilt from the interaction log.
func (s *Store) Load(ctx context.Context) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rows, err := uow.SessionRepository().FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	interactions, err := uow.InteractionRepository().FindAll(ctx,
		specification.OrderBy{Field: "user_id"},
		specification.OrderBy{Field: "sequence"},
	)
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}

	byUser := make(map[string]*entity.Session, len(rows))
	for _, row := range rows {
		byUser[row.UserId] = &entity.Session{
			UserId:    row.UserId,
			CreatedAt: row.CreatedAt,
			Stats:     entity.SessionStats{UserId: row.UserId},
		}
	}

	var orphans int
	for _, it := range interactions {
		sess, ok := byUser[it.UserId]
		if !ok {
			orphans++
			sess = &entity.Session{UserId: it.UserId, CreatedAt: it.Timestamp, Stats: entity.SessionStats{UserId: it.UserId}}
		}
		byUser[it.UserId] = sess.WithInteraction(*it)
	}
	if orphans > 0 {
		s.logger.Warn(logModule, "Interactions without a session row were attached to new sessions", map[string]interface{}{
			"interactions": orphans,
		})
	}

	for _, sess := range byUser {
		s.sessions.Save(sess)
	}

	s.logger.Info(logModule, "Sessions loaded", map[string]interface{}{
		"sessions":     len(byUser),
		"interactions": len(interactions),
	})
	return nil
}

// CreateSession makes an empty session for userId. Calling it again for an
// existing session returns that session unchanged.
func (s *Store) CreateSession(ctx context.Context, userId string) (*entity.Session, error) {
	userId = strings.TrimSpace(userId)
	if userId == "" {
		return nil, ErrInvalidUser
	}

	mu := s.lockFor(userId)
	mu.Lock()
	defer mu.Unlock()

	if existing, ok := s.sessions.Get(userId); ok {
		return existing, nil
	}

	sess := &entity.Session{
		UserId:    userId,
		CreatedAt: s.now(),
		Stats:     entity.SessionStats{UserId: userId},
	}
	if err := s.commit(ctx, sess, nil); err != nil {
		return nil, err
	}
	s.sessions.Save(sess)

	s.logger.Debug(logModule, "Session created", map[string]interface{}{"user_id": userId})
	return sess, nil
}

// AddInteraction appends one interaction to the user's session, creating the
// session on first use. The interaction is acknowledged only after the
// interaction row and the updated session row are committed together.
func (s *Store) AddInteraction(ctx context.Context, userId, question string, article *entity.Article, reward float64) (*entity.Interaction, error) {
	userId = strings.TrimSpace(userId)
	if userId == "" {
		return nil, ErrInvalidUser
	}
	if article == nil {
		return nil, fmt.Errorf("interaction for %s has no article", userId)
	}

	mu := s.lockFor(userId)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	current, ok := s.sessions.Get(userId)
	if !ok {
		current = &entity.Session{UserId: userId, CreatedAt: now, Stats: entity.SessionStats{UserId: userId}}
	}

	it := entity.Interaction{
		Id:           uuid.New(),
		UserId:       userId,
		Sequence:     current.Stats.Count + 1,
		Question:     question,
		ArticleId:    article.Id,
		ArticleTitle: article.Title,
		Reward:       reward,
		Timestamp:    now,
	}
	next := current.WithInteraction(it)

	if err := s.commit(ctx, next, &it); err != nil {
		return nil, err
	}
	s.sessions.Save(next)

	return &it, nil
}

func (s *Store) commit(ctx context.Context, sess *entity.Session, it *entity.Interaction) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin session commit: %w", err)
	}
	defer uow.Rollback()

	if it != nil {
		if err := uow.InteractionRepository().Create(ctx, it); err != nil {
			return fmt.Errorf("persist interaction: %w", err)
		}
	}
	if err := uow.SessionRepository().Save(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		s.logger.Error(logModule, "Session commit failed", map[string]interface{}{
			"user_id": sess.UserId,
			"error":   err.Error(),
		})
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// GetStats returns the derived stats, or false when the user has no session.
func (s *Store) GetStats(userId string) (entity.SessionStats, bool) {
	sess, ok := s.sessions.Get(userId)
	if !ok {
		return entity.SessionStats{}, false
	}
	return sess.Stats, true
}

// Get returns the session snapshot. It must not be mutated.
func (s *Store) Get(userId string) (*entity.Session, bool) {
	return s.sessions.Get(userId)
}

// History returns up to limit of the most recent interactions, oldest
// first. A non-positive limit returns the whole log.
func (s *Store) History(userId string, limit int) ([]entity.Interaction, error) {
	sess, ok := s.sessions.Get(userId)
	if !ok {
		return nil, ErrSessionNotFound
	}

	items := sess.Interactions
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]entity.Interaction, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) Count() int {
	return s.sessions.Count()
}
