package model

import (
	"time"

	"rl-recommender-be/pkg/rl/agent"

	"gorm.io/datatypes"
)

type Checkpoint struct {
	Name       string                               `gorm:"type:varchar(100);primaryKey"`
	StateDim   int                                  `gorm:"not null"`
	HiddenDim  int                                  `gorm:"not null"`
	ActionDim  int                                  `gorm:"not null"`
	Steps      int64                                `gorm:"not null;default:0"`
	Parameters datatypes.JSONType[agent.Checkpoint] `gorm:"not null"`
	CreatedAt  time.Time                            `gorm:"autoCreateTime"`
	UpdatedAt  time.Time                            `gorm:"autoUpdateTime"`
}

func (Checkpoint) TableName() string {
	return "rl_checkpoints"
}
