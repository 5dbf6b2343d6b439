package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/controller"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/pkg/serverutils"
	"rl-recommender-be/internal/repository/unitofwork"
	"rl-recommender-be/internal/service"
	"rl-recommender-be/pkg/events"
	pktNats "rl-recommender-be/pkg/nats"
	"rl-recommender-be/pkg/response"
	"rl-recommender-be/pkg/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

const feedbackDurable = "rl-recommender-feedback"

type Container struct {
	Core *Core

	// Controllers
	RecommendationController controller.IRecommendationController

	// Background Services (Exposed for main.go to run)
	TrainingService service.ITrainingService

	Sessions *session.Store
	Logger   *logger.ZapLogger

	trainingLogger *logger.ZapLogger
	pubSub         *gochannel.GoChannel
	natsPub        *pktNats.Publisher
	natsSub        *pktNats.Subscriber
}

// Options lets callers swap out the loggers, mostly for tests.
type Options struct {
	Logger         *logger.ZapLogger
	TrainingLogger *logger.ZapLogger
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, opts Options) (*Container, error) {
	if cfg.Auth.JwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}
	trainingLogger := opts.TrainingLogger
	if trainingLogger == nil {
		trainingLogger = logger.NewIsolatedLogger(cfg.App.TrainingLogPath)
	}

	core, err := BuildCore(cfg)
	if err != nil {
		return nil, err
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS is optional: without it interactions are only trained on locally.
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	// 3. Services
	publisherService := service.NewPublisherService(cfg.Training.Topic, pubSub)
	trainingService := service.NewTrainingService(
		pubSub,
		publisherService,
		uowFactory,
		core.Env,
		core.Agent,
		trainingLogger,
		service.TrainingOptions{
			Topic:           cfg.Training.Topic,
			TrainEvery:      cfg.Training.TrainEvery,
			CheckpointEvery: cfg.Training.CheckpointEvery,
			CheckpointName:  cfg.Training.CheckpointName,
		},
	)

	if err := WarmStart(ctx, core, trainingService, cfg, trainingLogger); err != nil {
		pubSub.Close()
		return nil, err
	}

	sessions := session.NewStore(uowFactory, sysLogger)
	if err := sessions.Load(ctx); err != nil {
		pubSub.Close()
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	// A nil *Publisher must not end up inside the interface.
	var eventPublisher events.Publisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	recommendationService := service.NewRecommendationService(
		core.Env,
		core.Agent,
		core.Articles,
		sessions,
		response.NewGenerator(),
		publisherService,
		eventPublisher,
		sysLogger,
		cfg.Training.OnlineExploration,
	)

	// 4. Controllers
	return &Container{
		Core:                     core,
		RecommendationController: controller.NewRecommendationController(recommendationService, serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)),
		TrainingService:          trainingService,
		Sessions:                 sessions,
		Logger:                   sysLogger,
		trainingLogger:           trainingLogger,
		pubSub:                   pubSub,
		natsPub:                  natsPub,
		natsSub:                  natsSub,
	}, nil
}

// StartBackground starts the training consumer and, when NATS is connected,
// the FEEDBACK_SUBMITTED subscription feeding it.
func (c *Container) StartBackground(ctx context.Context) error {
	if err := c.TrainingService.Consume(ctx); err != nil {
		return fmt.Errorf("start training consumer: %w", err)
	}
	if c.natsSub != nil {
		if err := c.natsSub.Subscribe(ctx, events.FeedbackSubmitted, feedbackDurable, c.TrainingService.HandleFeedbackEvent); err != nil {
			c.Logger.Warn(bootModule, "Feedback subscription failed, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return nil
}

// Shutdown stops intake, waits for the consumer to drain and writes a final
// checkpoint. The context passed to StartBackground must already be done.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn(bootModule, "Closing event bus failed", map[string]interface{}{"error": err.Error()})
	}
	c.TrainingService.Wait()

	err := c.TrainingService.SaveCheckpoint(ctx)
	if err != nil {
		c.Logger.Error(bootModule, "Final checkpoint failed", map[string]interface{}{"error": err.Error()})
	}

	if c.natsPub != nil {
		c.natsPub.Close()
	}
	c.trainingLogger.Sync()
	c.Logger.Sync()
	return err
}
