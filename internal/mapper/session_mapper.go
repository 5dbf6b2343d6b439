package mapper

import (
	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/model"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// SessionToEntity maps the session row only; Interactions stay empty.
func (m *SessionMapper) SessionToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}

	return &entity.Session{
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
		Stats: entity.SessionStats{
			UserId:        s.UserId,
			Count:         s.InteractionCount,
			TotalReward:   s.TotalReward,
			AverageReward: s.AverageReward,
			LastActivity:  s.LastActivity,
		},
	}
}

func (m *SessionMapper) SessionToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}

	return &model.Session{
		UserId:           s.UserId,
		InteractionCount: s.Stats.Count,
		TotalReward:      s.Stats.TotalReward,
		AverageReward:    s.Stats.AverageReward,
		LastActivity:     s.Stats.LastActivity,
		CreatedAt:        s.CreatedAt,
	}
}

func (m *SessionMapper) InteractionToEntity(i *model.Interaction) *entity.Interaction {
	if i == nil {
		return nil
	}

	return &entity.Interaction{
		Id:           i.Id,
		UserId:       i.UserId,
		Sequence:     i.Sequence,
		Question:     i.Question,
		ArticleId:    i.ArticleId,
		ArticleTitle: i.ArticleTitle,
		Reward:       i.Reward,
		Timestamp:    i.RecordedAt,
	}
}

func (m *SessionMapper) InteractionToModel(i *entity.Interaction) *model.Interaction {
	if i == nil {
		return nil
	}

	return &model.Interaction{
		Id:           i.Id,
		UserId:       i.UserId,
		Sequence:     i.Sequence,
		Question:     i.Question,
		ArticleId:    i.ArticleId,
		ArticleTitle: i.ArticleTitle,
		Reward:       i.Reward,
		RecordedAt:   i.Timestamp,
	}
}

func (m *SessionMapper) InteractionsToEntities(items []*model.Interaction) []*entity.Interaction {
	out := make([]*entity.Interaction, len(items))
	for i, item := range items {
		out[i] = m.InteractionToEntity(item)
	}
	return out
}

func (m *SessionMapper) CheckpointToEntity(c *model.Checkpoint) *entity.ModelCheckpoint {
	if c == nil {
		return nil
	}

	return &entity.ModelCheckpoint{
		Name:       c.Name,
		Checkpoint: c.Parameters.Data(),
		UpdatedAt:  c.UpdatedAt,
	}
}

func (m *SessionMapper) CheckpointToModel(c *entity.ModelCheckpoint) *model.Checkpoint {
	if c == nil {
		return nil
	}

	return &model.Checkpoint{
		Name:       c.Name,
		StateDim:   c.Checkpoint.StateDim,
		HiddenDim:  c.Checkpoint.HiddenDim,
		ActionDim:  c.Checkpoint.ActionDim,
		Steps:      c.Checkpoint.Steps,
		Parameters: datatypes.NewJSONType(c.Checkpoint),
	}
}
