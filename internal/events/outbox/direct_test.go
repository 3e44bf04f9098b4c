package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archivedEvent struct {
	ForumID string    `json:"forum_id"`
	At      time.Time `json:"at"`
}

func (archivedEvent) EventType() string       { return "forum.archived" }
func (archivedEvent) AggregateType() string   { return "forum" }
func (e archivedEvent) AggregateID() string   { return e.ForumID }
func (e archivedEvent) OccurredAt() time.Time { return e.At }

func TestDirectSealsAndSends(t *testing.T) {
	sink := &recordingSink{}
	d := NewDirect(sink)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, d.Publish(context.Background(), archivedEvent{ForumID: "f-1", At: at}, archivedEvent{ForumID: "f-2", At: at}))
	require.Len(t, sink.sent, 2)
	assert.Equal(t, "forum.archived", sink.sent[0].EventType)
	assert.Equal(t, "f-1", sink.sent[0].AggregateID)
	assert.JSONEq(t, `{"forum_id":"f-2","at":"2026-02-01T00:00:00Z"}`, string(sink.sent[1].Payload))
	assert.NotEqual(t, sink.sent[0].ID, sink.sent[1].ID)
}

func TestDirectNoEventsSkipsSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("must not be called")}
	assert.NoError(t, NewDirect(sink).Publish(context.Background()))
}

func TestDirectReturnsSinkError(t *testing.T) {
	boom := errors.New("broker down")
	err := NewDirect(&recordingSink{err: boom}).Publish(context.Background(), archivedEvent{ForumID: "f"})
	assert.ErrorIs(t, err, boom)
}
