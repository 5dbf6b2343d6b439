package contract

import (
	"context"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/repository/specification"
)

// SessionRepository persists session rows (stats only, no interactions).
type SessionRepository interface {
	// Save inserts or updates the row keyed by UserId.
	Save(ctx context.Context, session *entity.Session) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type InteractionRepository interface {
	Create(ctx context.Context, interaction *entity.Interaction) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Interaction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type CheckpointRepository interface {
	Save(ctx context.Context, checkpoint *entity.ModelCheckpoint) error
	// FindByName returns nil, nil when no checkpoint has that name.
	FindByName(ctx context.Context, name string) (*entity.ModelCheckpoint, error)
}
