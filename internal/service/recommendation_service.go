package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"rl-recommender-be/internal/dto"
	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/contract"
	"rl-recommender-be/pkg/events"
	"rl-recommender-be/pkg/response"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/environment"
	"rl-recommender-be/pkg/session"
)

const recommendationModule = "RECOMMENDATION"

// eventMirrorTimeout bounds the external bus publish on the request path.
const eventMirrorTimeout = 2 * time.Second

const (
	SourceAsk      = "ask"
	SourceFeedback = "feedback"
)

type IRecommendationService interface {
	AnswerQuestion(ctx context.Context, userId string, req *dto.AskRequest) (*dto.AskResponse, error)
	SessionStats(ctx context.Context, userId string) (*dto.SessionStatsResponse, error)
	CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error)
	SessionHistory(ctx context.Context, userId string, limit int) ([]dto.InteractionResponse, error)
	ListArticles(ctx context.Context) ([]dto.ArticleResponse, error)
	GetArticle(ctx context.Context, id int) (*dto.ArticleDetailResponse, error)
	HealthSummary(ctx context.Context) (*dto.HealthResponse, error)
	SubmitFeedback(ctx context.Context, userId string, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
}

type recommendationService struct {
	env       *environment.Environment
	agent     *agent.Agent
	articles  contract.ArticleRepository
	sessions  *session.Store
	generator *response.Generator
	publisher IPublisherService
	// eventPublisher mirrors interactions to the external bus; nil disables it.
	eventPublisher events.Publisher
	mirrorTimeout  time.Duration
	logger         logger.ILogger
	explore        bool
}

func NewRecommendationService(
	env *environment.Environment,
	ag *agent.Agent,
	articles contract.ArticleRepository,
	sessions *session.Store,
	generator *response.Generator,
	publisher IPublisherService,
	eventPublisher events.Publisher,
	log logger.ILogger,
	explore bool,
) IRecommendationService {
	return &recommendationService{
		env:            env,
		agent:          ag,
		articles:       articles,
		sessions:       sessions,
		generator:      generator,
		publisher:      publisher,
		eventPublisher: eventPublisher,
		mirrorTimeout:  eventMirrorTimeout,
		logger:         log,
		explore:        explore,
	}
}

// AnswerQuestion runs one episode: reset, select, score, record. The
// interaction is durable before the answer is returned.
func (s *recommendationService) AnswerQuestion(ctx context.Context, userId string, req *dto.AskRequest) (*dto.AskResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ep := s.env.Reset(req.Question)
	if ep.Degraded {
		s.logger.Warn(recommendationModule, "Question has no known terms, using zero state", map[string]interface{}{
			"user_id":  userId,
			"question": req.Question,
		})
	}

	action, confidence := s.agent.SelectWithConfidence(ep.State, s.explore)

	article, err := s.env.ArticleForAction(action)
	if err != nil {
		return nil, err
	}
	reward, err := s.env.Score(ep, action)
	if err != nil {
		return nil, err
	}

	interaction, err := s.sessions.AddInteraction(ctx, userId, req.Question, article, reward)
	if err != nil {
		return nil, err
	}

	questionsAnswered.WithLabelValues(strconv.FormatBool(ep.Degraded)).Inc()
	servedReward.Observe(reward)

	s.emit(ctx, dto.InteractionRecordedMessage{
		UserId:        userId,
		InteractionId: interaction.Id,
		Question:      req.Question,
		ArticleId:     article.Id,
		Reward:        reward,
		Source:        SourceAsk,
		OccurredAt:    interaction.Timestamp,
	})

	answer := s.generator.Generate(req.Question, article, confidence)

	return &dto.AskResponse{
		Answer: answer.Text,
		RecommendedArticle: dto.RecommendedArticle{
			ArticleResponse: toArticleResponse(article),
			Confidence:      confidence,
		},
		SuggestedActions: answer.SuggestedActions,
		Reward:           reward,
		Confidence:       confidence,
		SessionId:        userId,
		InteractionId:    interaction.Id,
		Degraded:         ep.Degraded,
	}, nil
}

// emit hands the interaction to the training consumer and mirrors it to the
// external bus. Neither failure affects the caller: the interaction is
// already recorded.
func (s *recommendationService) emit(ctx context.Context, msg dto.InteractionRecordedMessage) {
	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.publisher.Publish(ctx, payload)
	}
	if err != nil {
		s.logger.Error(recommendationModule, "Failed to publish training message", map[string]interface{}{
			"user_id": msg.UserId,
			"error":   err.Error(),
		})
	}

	if s.eventPublisher == nil || msg.Source != SourceAsk {
		return
	}
	evt := events.BaseEvent{
		Type: events.InteractionRecorded,
		Data: map[string]interface{}{
			"user_id":        msg.UserId,
			"interaction_id": msg.InteractionId.String(),
			"question":       msg.Question,
			"article_id":     msg.ArticleId,
			"reward":         msg.Reward,
		},
		OccurredAt: msg.OccurredAt,
	}
	mirrorCtx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()
	if err := s.eventPublisher.Publish(mirrorCtx, evt); err != nil {
		s.logger.Warn(recommendationModule, "Failed to publish INTERACTION_RECORDED event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *recommendationService) SessionStats(ctx context.Context, userId string) (*dto.SessionStatsResponse, error) {
	stats, ok := s.sessions.GetStats(userId)
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return &dto.SessionStatsResponse{
		UserId:           userId,
		InteractionCount: stats.Count,
		AverageReward:    stats.AverageReward,
		TotalReward:      stats.TotalReward,
		LastActivity:     stats.LastActivity,
	}, nil
}

func (s *recommendationService) CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error) {
	sess, err := s.sessions.CreateSession(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{SessionId: sess.UserId, CreatedAt: sess.CreatedAt}, nil
}

func (s *recommendationService) SessionHistory(ctx context.Context, userId string, limit int) ([]dto.InteractionResponse, error) {
	items, err := s.sessions.History(userId, limit)
	if err != nil {
		return nil, err
	}

	res := make([]dto.InteractionResponse, 0, len(items))
	for _, it := range items {
		res = append(res, dto.InteractionResponse{
			Id:           it.Id,
			Sequence:     it.Sequence,
			Question:     it.Question,
			ArticleId:    it.ArticleId,
			ArticleTitle: it.ArticleTitle,
			Reward:       it.Reward,
			Timestamp:    it.Timestamp,
		})
	}
	return res, nil
}

func (s *recommendationService) ListArticles(ctx context.Context) ([]dto.ArticleResponse, error) {
	articles := s.articles.GetAllArticles()
	res := make([]dto.ArticleResponse, 0, len(articles))
	for _, a := range articles {
		res = append(res, toArticleResponse(a))
	}
	return res, nil
}

func (s *recommendationService) GetArticle(ctx context.Context, id int) (*dto.ArticleDetailResponse, error) {
	article, ok := s.articles.GetArticle(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", contract.ErrArticleNotFound, id)
	}
	return &dto.ArticleDetailResponse{
		ArticleResponse: toArticleResponse(article),
		Content:         article.Content,
	}, nil
}

func (s *recommendationService) HealthSummary(ctx context.Context) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:        "healthy",
		ArticlesCount: len(s.articles.GetAllArticles()),
		SessionsCount: s.sessions.Count(),
		AgentSteps:    s.agent.Steps(),
	}, nil
}

// SubmitFeedback queues an explicit reward for training. It does not touch
// the session log.
func (s *recommendationService) SubmitFeedback(ctx context.Context, userId string, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	if _, err := s.env.ActionForArticle(*req.ArticleId); err != nil {
		return nil, err
	}

	s.emit(ctx, dto.InteractionRecordedMessage{
		UserId:     userId,
		Question:   req.Question,
		ArticleId:  *req.ArticleId,
		Reward:     req.Reward,
		Source:     SourceFeedback,
		OccurredAt: time.Now().UTC(),
	})
	return &dto.FeedbackResponse{Accepted: true}, nil
}

func toArticleResponse(a *entity.Article) dto.ArticleResponse {
	return dto.ArticleResponse{
		Id:       a.Id,
		Title:    a.Title,
		Summary:  a.Summary,
		Category: a.Category,
		Tags:     a.Tags,
		Keywords: a.Keywords,
		URL:      a.URL,
	}
}
