package model

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	UserId           string     `gorm:"type:varchar(255);primaryKey"`
	InteractionCount int64      `gorm:"not null;default:0"`
	TotalReward      float64    `gorm:"not null;default:0"`
	AverageReward    float64    `gorm:"not null;default:0"`
	LastActivity     *time.Time `gorm:"index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "rl_sessions"
}

// Interaction rows are append-only; (user_id, sequence) orders a user's log.
type Interaction struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_rl_interactions_user_seq"`
	Sequence     int64     `gorm:"not null;uniqueIndex:idx_rl_interactions_user_seq"`
	Question     string    `gorm:"type:text;not null"`
	ArticleId    int       `gorm:"not null;index"`
	ArticleTitle string    `gorm:"type:text"`
	Reward       float64   `gorm:"not null"`
	RecordedAt   time.Time `gorm:"not null"`
}

func (Interaction) TableName() string {
	return "rl_interactions"
}
