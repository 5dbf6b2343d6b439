package nats

import (
	"testing"
	"time"

	"rl-recommender-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectRoundTrip(t *testing.T) {
	assert.Equal(t, "events.FEEDBACK_SUBMITTED", Subject(events.FeedbackSubmitted))
	assert.Equal(t, events.FeedbackSubmitted, EventType(Subject(events.FeedbackSubmitted)))
}

func TestDecode(t *testing.T) {
	event, err := decode("events.FEEDBACK_SUBMITTED", []byte(`{"user_id":"u1","reward":0.5,"occurred_at":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)

	assert.Equal(t, events.FeedbackSubmitted, event.EventType())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), event.Timestamp())
	assert.Equal(t, map[string]interface{}{"user_id": "u1", "reward": 0.5}, event.Payload())

	_, err = decode("events.X", []byte("not json"))
	assert.Error(t, err)
}
