package entity

import (
	"time"

	"rl-recommender-be/pkg/rl/agent"

	"github.com/google/uuid"
)

type Interaction struct {
	Id           uuid.UUID
	UserId       string
	Sequence     int64
	Question     string
	ArticleId    int
	ArticleTitle string
	Reward       float64
	Timestamp    time.Time
}

type SessionStats struct {
	UserId        string
	Count         int64
	TotalReward   float64
	AverageReward float64
	LastActivity  *time.Time
}

// Session is an append-only interaction log plus its derived stats.
// Values handed out by the session store are snapshots and must not be mutated.
type Session struct {
	UserId       string
	CreatedAt    time.Time
	Interactions []Interaction
	Stats        SessionStats
}

// WithInteraction returns the session extended by one interaction, stats
// updated incrementally. The receiver is left untouched.
func (s *Session) WithInteraction(it Interaction) *Session {
	stats := s.Stats
	stats.Count++
	stats.TotalReward += it.Reward
	stats.AverageReward = stats.TotalReward / float64(stats.Count)
	ts := it.Timestamp
	stats.LastActivity = &ts

	n := len(s.Interactions)
	return &Session{
		UserId:       s.UserId,
		CreatedAt:    s.CreatedAt,
		Interactions: append(s.Interactions[:n:n], it),
		Stats:        stats,
	}
}

// ModelCheckpoint is a named, persisted copy of the agent parameters.
type ModelCheckpoint struct {
	Name       string
	Checkpoint agent.Checkpoint
	UpdatedAt  time.Time
}
