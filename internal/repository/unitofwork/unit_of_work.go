package unitofwork

import (
	"context"

	"rl-recommender-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	InteractionRepository() contract.InteractionRepository
	CheckpointRepository() contract.CheckpointRepository
}
