package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rl-recommender-be/internal/dto"
	"rl-recommender-be/internal/pkg/serverutils"
	"rl-recommender-be/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mockRecommendationService struct {
	mock.Mock
}

func (m *mockRecommendationService) AnswerQuestion(ctx context.Context, userId string, req *dto.AskRequest) (*dto.AskResponse, error) {
	args := m.Called(ctx, userId, req)
	res, _ := args.Get(0).(*dto.AskResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) SessionStats(ctx context.Context, userId string) (*dto.SessionStatsResponse, error) {
	args := m.Called(ctx, userId)
	res, _ := args.Get(0).(*dto.SessionStatsResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error) {
	args := m.Called(ctx, userId)
	res, _ := args.Get(0).(*dto.CreateSessionResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) SessionHistory(ctx context.Context, userId string, limit int) ([]dto.InteractionResponse, error) {
	args := m.Called(ctx, userId, limit)
	res, _ := args.Get(0).([]dto.InteractionResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) ListArticles(ctx context.Context) ([]dto.ArticleResponse, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]dto.ArticleResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) GetArticle(ctx context.Context, id int) (*dto.ArticleDetailResponse, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*dto.ArticleDetailResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) HealthSummary(ctx context.Context) (*dto.HealthResponse, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*dto.HealthResponse)
	return res, args.Error(1)
}

func (m *mockRecommendationService) SubmitFeedback(ctx context.Context, userId string, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	args := m.Called(ctx, userId, req)
	res, _ := args.Get(0).(*dto.FeedbackResponse)
	return res, args.Error(1)
}

func setupApp(svc *mockRecommendationService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewRecommendationController(svc, serverutils.NewJwtMiddleware(testSecret)).RegisterRoutes(app.Group("/api"))
	return app
}

func signToken(t *testing.T, userId string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, path, body, token string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestAskRequiresToken(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)

	status, body := doRequest(t, app, http.MethodPost, "/api/ask", `{"question":"router"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])

	status, _ = doRequest(t, app, http.MethodPost, "/api/ask", `{"question":"router"}`, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
	svc.AssertNotCalled(t, "AnswerQuestion", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskAnswersForTokenUser(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)

	svc.On("AnswerQuestion", mock.Anything, "alice", &dto.AskRequest{Question: "How do I size the disk cache?"}).
		Return(&dto.AskResponse{Answer: "Disk cache tuning", Reward: 0.8, Confidence: 0.6, SessionId: "alice"}, nil).
		Once()

	status, body := doRequest(t, app, http.MethodPost, "/api/ask", `{"question":"How do I size the disk cache?"}`, signToken(t, "alice"))
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Disk cache tuning", data["answer"])
	assert.Equal(t, 0.8, data["reward"])
	assert.Equal(t, 0.6, data["confidence"])
	svc.AssertExpectations(t)
}

func TestAskRejectsInvalidBody(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)
	token := signToken(t, "alice")

	status, _ := doRequest(t, app, http.MethodPost, "/api/ask", `{"question":""}`, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/ask", `{"question":`, token)
	assert.Equal(t, http.StatusBadRequest, status)

	svc.AssertNotCalled(t, "AnswerQuestion", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionStatsOwnUserOnly(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)

	svc.On("SessionStats", mock.Anything, "alice").
		Return(&dto.SessionStatsResponse{UserId: "alice", InteractionCount: 2, AverageReward: 0.5}, nil).
		Once()
	svc.On("SessionStats", mock.Anything, "ghost").Return(nil, session.ErrSessionNotFound)

	status, body := doRequest(t, app, http.MethodGet, "/api/session/alice", "", signToken(t, "alice"))
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["interaction_count"])

	status, _ = doRequest(t, app, http.MethodGet, "/api/session/alice", "", signToken(t, "mallory"))
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doRequest(t, app, http.MethodGet, "/api/session/ghost", "", signToken(t, "ghost"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "session not found", body["message"])
}

func TestCreateSessionAndHistory(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)
	token := signToken(t, "bob")

	svc.On("CreateSession", mock.Anything, "bob").Return(&dto.CreateSessionResponse{SessionId: "bob"}, nil).Once()
	svc.On("SessionHistory", mock.Anything, "bob", 5).Return([]dto.InteractionResponse{{Question: "q", ArticleId: 2}}, nil).Once()

	status, body := doRequest(t, app, http.MethodPost, "/api/session", "", token)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "bob", body["data"].(map[string]interface{})["session_id"])

	status, body = doRequest(t, app, http.MethodGet, "/api/session/bob/history?limit=5", "", token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = doRequest(t, app, http.MethodGet, "/api/session/bob/history?limit=-1", "", token)
	assert.Equal(t, http.StatusBadRequest, status)

	svc.AssertExpectations(t)
}

func TestArticlesArePublic(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)

	svc.On("ListArticles", mock.Anything).Return([]dto.ArticleResponse{{Id: 1, Title: "Network routing"}, {Id: 2, Title: "Disk cache tuning"}}, nil)
	svc.On("GetArticle", mock.Anything, 2).Return(&dto.ArticleDetailResponse{ArticleResponse: dto.ArticleResponse{Id: 2, Title: "Disk cache tuning"}}, nil)

	status, body := doRequest(t, app, http.MethodGet, "/api/articles", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = doRequest(t, app, http.MethodGet, "/api/articles/2", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Disk cache tuning", body["data"].(map[string]interface{})["title"])

	status, _ = doRequest(t, app, http.MethodGet, "/api/articles/two", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)

	svc.On("HealthSummary", mock.Anything).Return(&dto.HealthResponse{Status: "healthy", ArticlesCount: 3, SessionsCount: 1}, nil)

	status, body := doRequest(t, app, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, float64(3), data["articles_count"])
}

func TestFeedbackValidation(t *testing.T) {
	svc := new(mockRecommendationService)
	app := setupApp(svc)
	token := signToken(t, "carol")

	svc.On("SubmitFeedback", mock.Anything, "carol", mock.AnythingOfType("*dto.FeedbackRequest")).
		Return(&dto.FeedbackResponse{Accepted: true}, nil).
		Once()

	status, _ := doRequest(t, app, http.MethodPost, "/api/feedback", `{"question":"q","article_id":1,"reward":1.5}`, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/feedback", `{"question":"q","reward":0.5}`, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doRequest(t, app, http.MethodPost, "/api/feedback", `{"question":"q","article_id":0,"reward":0.5}`, token)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, true, body["data"].(map[string]interface{})["accepted"])

	svc.AssertExpectations(t)
}
