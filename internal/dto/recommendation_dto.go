package dto

import (
	"time"

	"github.com/google/uuid"
)

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type ArticleResponse struct {
	Id       int      `json:"id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type ArticleDetailResponse struct {
	ArticleResponse
	Content string `json:"content"`
}

type RecommendedArticle struct {
	ArticleResponse
	// Confidence is the policy's own probability for this article.
	Confidence float64 `json:"confidence"`
}

// AskResponse keeps the two scores apart: Reward is the environment's
// relevance score (what training consumes), Confidence is what the policy
// believed before scoring.
type AskResponse struct {
	Answer             string             `json:"answer"`
	RecommendedArticle RecommendedArticle `json:"recommended_article"`
	SuggestedActions   []string           `json:"suggested_actions"`
	Reward             float64            `json:"reward"`
	Confidence         float64            `json:"confidence"`
	SessionId          string             `json:"session_id"`
	InteractionId      uuid.UUID          `json:"interaction_id"`
	Degraded           bool               `json:"degraded,omitempty"`
}

type SessionStatsResponse struct {
	UserId           string     `json:"user_id"`
	InteractionCount int64      `json:"interaction_count"`
	AverageReward    float64    `json:"average_reward"`
	TotalReward      float64    `json:"total_reward"`
	LastActivity     *time.Time `json:"last_activity"`
}

type CreateSessionResponse struct {
	SessionId string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type InteractionResponse struct {
	Id           uuid.UUID `json:"id"`
	Sequence     int64     `json:"sequence"`
	Question     string    `json:"question"`
	ArticleId    int       `json:"article_id"`
	ArticleTitle string    `json:"article_title"`
	Reward       float64   `json:"reward"`
	Timestamp    time.Time `json:"timestamp"`
}

type SessionHistoryQuery struct {
	Limit int `query:"limit" validate:"gte=0,lte=1000"`
}

type FeedbackRequest struct {
	Question  string  `json:"question" validate:"required,max=2000"`
	ArticleId *int    `json:"article_id" validate:"required"`
	Reward    float64 `json:"reward" validate:"gte=0,lte=1"`
}

type FeedbackResponse struct {
	Accepted bool `json:"accepted"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	ArticlesCount int    `json:"articles_count"`
	SessionsCount int    `json:"sessions_count"`
	AgentSteps    int64  `json:"agent_steps"`
}

// InteractionRecordedMessage is the in-process training message. Source is
// "ask" for served recommendations and "feedback" for explicit ratings.
type InteractionRecordedMessage struct {
	UserId        string    `json:"user_id"`
	InteractionId uuid.UUID `json:"interaction_id,omitempty"`
	Question      string    `json:"question"`
	ArticleId     int       `json:"article_id"`
	Reward        float64   `json:"reward"`
	Source        string    `json:"source"`
	OccurredAt    time.Time `json:"occurred_at"`
}
