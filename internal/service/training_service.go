package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"rl-recommender-be/internal/dto"
	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/unitofwork"
	"rl-recommender-be/pkg/events"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/environment"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const trainingModule = "TRAINER"

var ErrInvalidFeedbackEvent = errors.New("invalid feedback event")

type TrainingOptions struct {
	Topic           string
	TrainEvery      int
	CheckpointEvery int64
	CheckpointName  string
}

type TrainingStats struct {
	Consumed     int64
	Rejected     int64
	TrainedSteps int64
}

type ITrainingService interface {
	// Consume subscribes to the training topic and processes messages on one
	// goroutine until ctx is cancelled.
	Consume(ctx context.Context) error
	// Wait blocks until the consuming goroutine has exited.
	Wait()
	HandleFeedbackEvent(ctx context.Context, event events.Event) error
	SaveCheckpoint(ctx context.Context) error
	RestoreCheckpoint(ctx context.Context) (bool, error)
	Stats() TrainingStats
}

type trainingService struct {
	pubSub     *gochannel.GoChannel
	publisher  IPublisherService
	uowFactory unitofwork.RepositoryFactory
	env        *environment.Environment
	agent      *agent.Agent
	logger     logger.ILogger
	opts       TrainingOptions

	consumed atomic.Int64
	rejected atomic.Int64
	trained  atomic.Int64

	wg sync.WaitGroup
}

func NewTrainingService(
	pubSub *gochannel.GoChannel,
	publisher IPublisherService,
	uowFactory unitofwork.RepositoryFactory,
	env *environment.Environment,
	ag *agent.Agent,
	log logger.ILogger,
	opts TrainingOptions,
) ITrainingService {
	if opts.TrainEvery <= 0 {
		opts.TrainEvery = 1
	}
	return &trainingService{
		pubSub:     pubSub,
		publisher:  publisher,
		uowFactory: uowFactory,
		env:        env,
		agent:      ag,
		logger:     log,
		opts:       opts,
	}
}

func (s *trainingService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.opts.Topic)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
		s.logger.Info(trainingModule, "Training consumer stopped", map[string]interface{}{
			"consumed":      s.consumed.Load(),
			"trained_steps": s.trained.Load(),
		})
	}()

	return nil
}

func (s *trainingService) Wait() {
	s.wg.Wait()
}

func (s *trainingService) Stats() TrainingStats {
	return TrainingStats{
		Consumed:     s.consumed.Load(),
		Rejected:     s.rejected.Load(),
		TrainedSteps: s.trained.Load(),
	}
}

// processMessage always acks: a message that cannot become a transition is
// not going to become one on redelivery.
func (s *trainingService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.InteractionRecordedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.reject("unknown", "Failed to unmarshal training message", err)
		return
	}

	action, err := s.env.ActionForArticle(payload.ArticleId)
	if err != nil {
		s.reject(payload.Source, "Training message names an unknown article", err)
		return
	}

	ep := s.env.Reset(payload.Question)
	err = s.agent.Observe(agent.Transition{
		State:     ep.State,
		Action:    action,
		Reward:    payload.Reward,
		NextState: ep.State,
		Terminal:  true,
	})
	if err != nil {
		s.reject(payload.Source, "Transition rejected by agent", err)
		return
	}

	consumed := s.consumed.Add(1)
	trainingMessages.WithLabelValues(payload.Source, "observed").Inc()

	if consumed%int64(s.opts.TrainEvery) != 0 {
		return
	}
	loss, trained := s.agent.TrainStep()
	if !trained {
		return
	}
	steps := s.trained.Add(1)

	s.logger.Debug(trainingModule, "Online train step", map[string]interface{}{
		"loss":    loss,
		"steps":   steps,
		"epsilon": s.agent.Epsilon(),
	})

	if s.opts.CheckpointEvery > 0 && steps%s.opts.CheckpointEvery == 0 {
		if err := s.SaveCheckpoint(ctx); err != nil {
			s.logger.Error(trainingModule, "Failed to save checkpoint", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (s *trainingService) reject(source, message string, err error) {
	s.rejected.Add(1)
	trainingMessages.WithLabelValues(source, "rejected").Inc()
	s.logger.Warn(trainingModule, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// HandleFeedbackEvent turns a FEEDBACK_SUBMITTED event from the external bus
// into a training message, so that the consumer stays the only writer.
func (s *trainingService) HandleFeedbackEvent(ctx context.Context, event events.Event) error {
	data := event.Payload()

	question, _ := data["question"].(string)
	articleId, okId := data["article_id"].(float64)
	reward, okReward := data["reward"].(float64)
	userId, _ := data["user_id"].(string)

	if question == "" || !okId || !okReward || reward < environment.MinReward || reward > environment.MaxReward {
		// Acknowledge and drop: redelivery cannot fix a malformed payload.
		s.logger.Warn(trainingModule, "Dropping malformed feedback event", map[string]interface{}{
			"payload": data,
		})
		return nil
	}

	payload, err := json.Marshal(dto.InteractionRecordedMessage{
		UserId:     userId,
		Question:   question,
		ArticleId:  int(articleId),
		Reward:     reward,
		Source:     SourceFeedback,
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedbackEvent, err)
	}
	return s.publisher.Publish(ctx, payload)
}

func (s *trainingService) SaveCheckpoint(ctx context.Context) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cp := &entity.ModelCheckpoint{
		Name:       s.opts.CheckpointName,
		Checkpoint: s.agent.Snapshot(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := uow.CheckpointRepository().Save(ctx, cp); err != nil {
		return err
	}
	checkpointsSaved.Inc()
	s.logger.Info(trainingModule, "Checkpoint saved", map[string]interface{}{
		"name":  cp.Name,
		"steps": cp.Checkpoint.Steps,
	})
	return nil
}

// RestoreCheckpoint loads the named checkpoint into the agent. It returns
// false when none exists; a checkpoint with other dimensions or from another
// corpus is an error wrapping agent.ErrConfigMismatch.
func (s *trainingService) RestoreCheckpoint(ctx context.Context) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cp, err := uow.CheckpointRepository().FindByName(ctx, s.opts.CheckpointName)
	if err != nil {
		return false, err
	}
	if cp == nil {
		return false, nil
	}
	if err := s.agent.Restore(cp.Checkpoint); err != nil {
		return false, err
	}
	s.logger.Info(trainingModule, "Checkpoint restored", map[string]interface{}{
		"name":  cp.Name,
		"steps": cp.Checkpoint.Steps,
	})
	return true, nil
}
