package implementation

import (
	"context"
	"errors"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/mapper"
	"rl-recommender-be/internal/model"
	"rl-recommender-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckpointRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewCheckpointRepository(db *gorm.DB) contract.CheckpointRepository {
	return &CheckpointRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *CheckpointRepositoryImpl) Save(ctx context.Context, checkpoint *entity.ModelCheckpoint) error {
	m := r.mapper.CheckpointToModel(checkpoint)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error; err != nil {
		return err
	}
	checkpoint.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *CheckpointRepositoryImpl) FindByName(ctx context.Context, name string) (*entity.ModelCheckpoint, error) {
	var m model.Checkpoint
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.CheckpointToEntity(&m), nil
}
