package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rl-recommender-be/internal/dto"
	"rl-recommender-be/internal/repository/contract"
	"rl-recommender-be/pkg/events"
	"rl-recommender-be/pkg/response"
	"rl-recommender-be/pkg/rl/environment"
	"rl-recommender-be/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recommendationFixture struct {
	svc      IRecommendationService
	sessions *session.Store
	events   *recordingPublisher
	messages <-chan *dtoMessage
}

type dtoMessage struct {
	payload dto.InteractionRecordedMessage
}

func newRecommendationFixture(t *testing.T) *recommendationFixture {
	t.Helper()
	c := newCore(t, 4)
	pubSub := newPubSub(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	raw, err := pubSub.Subscribe(ctx, testTopic)
	require.NoError(t, err)

	out := make(chan *dtoMessage, 16)
	go func() {
		for msg := range raw {
			var payload dto.InteractionRecordedMessage
			if json.Unmarshal(msg.Payload, &payload) == nil {
				out <- &dtoMessage{payload: payload}
			}
			msg.Ack()
		}
	}()

	sessions := session.NewStore(newUowFactory(t), nopLogger())
	recorder := &recordingPublisher{}
	svc := NewRecommendationService(
		c.env,
		c.agent,
		c.articles,
		sessions,
		response.NewGenerator(),
		NewPublisherService(testTopic, pubSub),
		recorder,
		nopLogger(),
		false,
	)
	return &recommendationFixture{svc: svc, sessions: sessions, events: recorder, messages: out}
}

func (f *recommendationFixture) nextMessage(t *testing.T) dto.InteractionRecordedMessage {
	t.Helper()
	select {
	case m := <-f.messages:
		return m.payload
	case <-time.After(2 * time.Second):
		t.Fatal("no training message published")
		return dto.InteractionRecordedMessage{}
	}
}

func TestAnswerQuestionRecordsInteraction(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx := context.Background()

	res, err := f.svc.AnswerQuestion(ctx, "alice", &dto.AskRequest{Question: "How do I size the disk cache?"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Answer)
	assert.False(t, res.Degraded)
	assert.Equal(t, "alice", res.SessionId)
	assert.GreaterOrEqual(t, res.Reward, environment.MinReward)
	assert.LessOrEqual(t, res.Reward, environment.MaxReward)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, res.Confidence, res.RecommendedArticle.Confidence)

	stats, err := f.svc.SessionStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.InteractionCount)
	assert.InDelta(t, res.Reward, stats.AverageReward, 1e-12)

	history, err := f.svc.SessionHistory(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.InteractionId, history[0].Id)
	assert.Equal(t, res.RecommendedArticle.Id, history[0].ArticleId)

	msg := f.nextMessage(t)
	assert.Equal(t, SourceAsk, msg.Source)
	assert.Equal(t, res.InteractionId, msg.InteractionId)
	assert.Equal(t, res.RecommendedArticle.Id, msg.ArticleId)

	mirrored := f.events.Events()
	require.Len(t, mirrored, 1)
	assert.Equal(t, events.InteractionRecorded, mirrored[0].EventType())
	assert.Equal(t, "alice", mirrored[0].Payload()["user_id"])
}

func TestAnswerQuestionWithUnknownTermsIsDegraded(t *testing.T) {
	f := newRecommendationFixture(t)

	res, err := f.svc.AnswerQuestion(context.Background(), "bob", &dto.AskRequest{Question: "zzzz qqqq"})
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, 0.0, res.Reward)

	stats, err := f.svc.SessionStats(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.InteractionCount)
}

func TestAnswerQuestionHonoursCancelledContext(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.AnswerQuestion(ctx, "carol", &dto.AskRequest{Question: "router"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, f.sessions.Count())
}

type stalledPublisher struct {
	deadline chan bool
}

func (p *stalledPublisher) Publish(ctx context.Context, event events.Event) error {
	_, ok := ctx.Deadline()
	p.deadline <- ok
	<-ctx.Done()
	return ctx.Err()
}

func TestAnswerQuestionDoesNotWaitOnStalledEventBus(t *testing.T) {
	c := newCore(t, 4)
	pubSub := newPubSub(t)
	stalled := &stalledPublisher{deadline: make(chan bool, 1)}
	svc := NewRecommendationService(
		c.env,
		c.agent,
		c.articles,
		session.NewStore(newUowFactory(t), nopLogger()),
		response.NewGenerator(),
		NewPublisherService(testTopic, pubSub),
		stalled,
		nopLogger(),
		false,
	)
	svc.(*recommendationService).mirrorTimeout = 50 * time.Millisecond

	start := time.Now()
	resp, err := svc.AnswerQuestion(context.Background(), "alice", &dto.AskRequest{Question: "How do I size the disk cache?"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, <-stalled.deadline)
}

func TestSessionStatsUnknownUser(t *testing.T) {
	f := newRecommendationFixture(t)

	_, err := f.svc.SessionStats(context.Background(), "nobody")
	assert.True(t, errors.Is(err, session.ErrSessionNotFound))
}

func TestCreateSessionThenStats(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", created.SessionId)

	stats, err := f.svc.SessionStats(ctx, "dave")
	require.NoError(t, err)
	assert.Zero(t, stats.InteractionCount)
	assert.Zero(t, stats.AverageReward)
}

func TestListAndGetArticles(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx := context.Background()

	list, err := f.svc.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Id)

	detail, err := f.svc.GetArticle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Disk cache tuning", detail.Title)
	assert.NotEmpty(t, detail.Content)

	_, err = f.svc.GetArticle(ctx, 99)
	assert.True(t, errors.Is(err, contract.ErrArticleNotFound))
}

func TestHealthSummaryCountsSessions(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, "erin")
	require.NoError(t, err)

	health, err := f.svc.HealthSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 3, health.ArticlesCount)
	assert.Equal(t, 1, health.SessionsCount)
}

func TestSubmitFeedback(t *testing.T) {
	f := newRecommendationFixture(t)
	ctx := context.Background()

	id := 3
	res, err := f.svc.SubmitFeedback(ctx, "frank", &dto.FeedbackRequest{Question: "rotate logs", ArticleId: &id, Reward: 1})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	msg := f.nextMessage(t)
	assert.Equal(t, SourceFeedback, msg.Source)
	assert.Equal(t, 3, msg.ArticleId)
	assert.Equal(t, 1.0, msg.Reward)

	assert.Empty(t, f.events.Events())
	assert.Equal(t, 0, f.sessions.Count())

	missing := 42
	_, err = f.svc.SubmitFeedback(ctx, "frank", &dto.FeedbackRequest{Question: "q", ArticleId: &missing, Reward: 0.5})
	assert.True(t, errors.Is(err, contract.ErrArticleNotFound))
}
