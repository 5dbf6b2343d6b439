package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/model"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/memory"
	"rl-recommender-be/internal/repository/unitofwork"
	"rl-recommender-be/pkg/database"
	"rl-recommender-be/pkg/events"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/encoder"
	"rl-recommender-be/pkg/rl/environment"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

const testTopic = "interaction.recorded.test"

func testArticles() []*entity.Article {
	return []*entity.Article{
		{Id: 1, Title: "Network routing", Content: "Routers forward packets between subnets.", Tags: []string{"network"}, Keywords: []string{"router"}},
		{Id: 2, Title: "Disk cache tuning", Summary: "Size the page cache to the hot set.", Content: "Keep hot blocks of the disk in the page cache.", Tags: []string{"storage"}, Keywords: []string{"cache"}},
		{Id: 3, Title: "Log rotation", Content: "Rotate and compress log files daily.", Tags: []string{"logging"}},
	}
}

type core struct {
	articles *memory.ArticleRepository
	env      *environment.Environment
	agent    *agent.Agent
}

func newCore(t *testing.T, batchSize int) *core {
	t.Helper()
	return newCoreFor(t, testArticles(), batchSize)
}

func newCoreFor(t *testing.T, articles []*entity.Article, batchSize int) *core {
	t.Helper()
	store, err := memory.NewArticleRepository(articles)
	require.NoError(t, err)

	var docs []string
	for _, a := range store.GetAllArticles() {
		docs = append(docs, a.Text())
	}
	enc, err := encoder.New(docs, encoder.DefaultConfig())
	require.NoError(t, err)
	env, err := environment.New(store, enc, environment.DefaultConfig())
	require.NoError(t, err)

	cfg := agent.DefaultConfig()
	cfg.StateDim = env.StateDim()
	cfg.ActionDim = env.ActionSpaceSize()
	cfg.HiddenDim = 8
	cfg.BatchSize = batchSize
	ag, err := agent.New(cfg, env)
	require.NoError(t, err)

	return &core{articles: store, env: env, agent: ag}
}

func newUowFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()
	db, err := database.NewGormDB(filepath.Join(t.TempDir(), "service.db"), database.Options{LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return unitofwork.NewRepositoryFactory(db)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })
	return pubSub
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func nopLogger() logger.ILogger {
	return logger.NewNopLogger()
}
