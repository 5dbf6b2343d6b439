package session

import (
	"context"
	"fmt"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/repository/specification"
)

// PersistedSession is one user's session as stored in the database.
type PersistedSession struct {
	Stats        entity.SessionStats  `json:"stats"`
	Interactions int64                `json:"interactions"`
	// Recent holds the newest interactions, oldest first.
	Recent       []entity.Interaction `json:"recent,omitempty"`
}

// Persisted reads a user's session straight from the database without
// touching the in-memory view. limit <= 0 skips the interaction rows.
func (s *Store) Persisted(ctx context.Context, userId string, limit int) (*PersistedSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	byUser := specification.ByUserID{UserID: userId}

	row, err := uow.SessionRepository().FindOne(ctx, byUser)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, userId)
	}

	total, err := uow.InteractionRepository().Count(ctx, byUser)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	out := &PersistedSession{Stats: row.Stats, Interactions: total}
	if limit <= 0 {
		return out, nil
	}

	newest, err := uow.InteractionRepository().FindAll(ctx,
		byUser,
		specification.OrderBy{Field: "sequence", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	out.Recent = make([]entity.Interaction, len(newest))
	for i, it := range newest {
		out.Recent[len(newest)-1-i] = *it
	}
	return out, nil
}

// PersistedCount is the number of session rows in the database.
func (s *Store) PersistedCount(ctx context.Context) (int64, error) {
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().Count(ctx)
}
