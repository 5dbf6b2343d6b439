package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rl-recommender-be/internal/bootstrap"
	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/model"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/memory"
	"rl-recommender-be/internal/server"
	"rl-recommender-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const jwtSecret = "integration-secret"

func loadConfig(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	t.Setenv("ARTICLES_PATH", "../../data/articles.json")
	t.Setenv("DB_CONNECTION_STRING", dbPath)
	t.Setenv("JWT_SECRET", jwtSecret)
	t.Setenv("NATS_URL", "")
	t.Setenv("PRETRAIN_ITERATIONS", "200")
	t.Setenv("TRAINING_FINETUNE_EPISODES", "20")
	t.Setenv("TRAINING_CHECKPOINT_EVERY", "0")
	t.Setenv("TRAINING_RESTORE_CHECKPOINT", "true")
	return config.Load()
}

func openDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := database.NewGormDB(path, database.Options{LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newContainer(t *testing.T, ctx context.Context, db *gorm.DB, cfg *config.Config) *bootstrap.Container {
	t.Helper()
	container, err := bootstrap.NewContainer(ctx, db, cfg, bootstrap.Options{
		Logger:         logger.NewNopLogger(),
		TrainingLogger: logger.NewNopLogger(),
	})
	require.NoError(t, err)
	return container
}

func token(t *testing.T, userId string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, app *fiber.App, method, path, body, bearer string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func TestRecommendationFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rl.db")
	cfg := loadConfig(t, dbPath)
	db := openDB(t, dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	container := newContainer(t, ctx, db, cfg)
	require.NoError(t, container.StartBackground(ctx))
	app := server.New(cfg, container).GetApp()

	// 1. Health before any session
	status, body := call(t, app, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, status)
	health := body["data"].(map[string]interface{})
	assert.Equal(t, float64(8), health["articles_count"])
	assert.Equal(t, float64(0), health["sessions_count"])

	// 2. Ask
	alice := token(t, "alice")
	status, body = call(t, app, http.MethodPost, "/api/ask", `{"question":"How do I roll back a kubernetes deployment?"}`, alice)
	require.Equal(t, http.StatusOK, status)
	answer := body["data"].(map[string]interface{})
	reward := answer["reward"].(float64)
	assert.GreaterOrEqual(t, reward, 0.0)
	assert.LessOrEqual(t, reward, 1.0)
	assert.NotEmpty(t, answer["answer"])
	assert.Equal(t, "alice", answer["session_id"])

	// 3. Stats reflect the interaction
	status, body = call(t, app, http.MethodGet, "/api/session/alice", "", alice)
	require.Equal(t, http.StatusOK, status)
	stats := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["interaction_count"])
	assert.InDelta(t, reward, stats["average_reward"].(float64), 1e-9)

	status, _ = call(t, app, http.MethodGet, "/api/session/alice", "", token(t, "bob"))
	assert.Equal(t, http.StatusForbidden, status)

	// 4. Feedback reaches the training consumer
	status, _ = call(t, app, http.MethodPost, "/api/feedback", `{"question":"How do I roll back a kubernetes deployment?","article_id":2,"reward":1}`, alice)
	require.Equal(t, http.StatusAccepted, status)

	require.Eventually(t, func() bool {
		return container.TrainingService.Stats().Consumed == 2
	}, 5*time.Second, 20*time.Millisecond)

	// 5. Metrics are exposed
	status, _ = call(t, app, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, status)

	// 6. Shutdown writes a checkpoint that a restart restores
	cancel()
	require.NoError(t, container.Shutdown(context.Background()))
	before := container.Core.Agent.Snapshot()

	restarted := newContainer(t, context.Background(), db, cfg)
	t.Cleanup(func() { restarted.Shutdown(context.Background()) })

	assert.Equal(t, before, restarted.Core.Agent.Snapshot())
	assert.Equal(t, 1, restarted.Sessions.Count())
	restoredStats, ok := restarted.Sessions.GetStats("alice")
	require.True(t, ok)
	assert.Equal(t, int64(1), restoredStats.Count)
}

func TestRestartWithReorderedCorpusRetrains(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rl.db")
	cfg := loadConfig(t, dbPath)
	db := openDB(t, dbPath)

	first := newContainer(t, context.Background(), db, cfg)
	require.NoError(t, first.Shutdown(context.Background()))
	saved := first.Core.Agent.Snapshot()

	// Same articles and vocabulary, but the first two swap ids and so swap actions.
	store, err := memory.LoadArticleRepository("../../data/articles.json")
	require.NoError(t, err)
	articles := store.GetAllArticles()
	articles[0].Id, articles[1].Id = articles[1].Id, articles[0].Id
	raw, err := json.Marshal(articles)
	require.NoError(t, err)
	corpusPath := filepath.Join(dir, "articles.json")
	require.NoError(t, os.WriteFile(corpusPath, raw, 0o644))
	t.Setenv("ARTICLES_PATH", corpusPath)

	restarted := newContainer(t, context.Background(), db, config.Load())
	t.Cleanup(func() { restarted.Shutdown(context.Background()) })

	snapshot := restarted.Core.Agent.Snapshot()
	assert.Equal(t, restarted.Core.Env.Fingerprint(), snapshot.Fingerprint)
	assert.NotEqual(t, saved.Fingerprint, snapshot.Fingerprint)
	assert.NotEqual(t, saved.W1, snapshot.W1)
}
