package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToSubscribers(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	first, leaveFirst := hub.Subscribe()
	second, leaveSecond := hub.Subscribe()
	defer leaveFirst()
	defer leaveSecond()

	require.NoError(t, hub.Publish(context.Background(), TopicFlaggedDetection, map[string]string{"plate": "ABC1234"}))

	for _, ch := range []<-chan Event{first, second} {
		event := <-ch
		assert.Equal(t, TopicFlaggedDetection, event.Topic)
		assert.JSONEq(t, `{"plate":"ABC1234"}`, string(event.Data))
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	ch, leave := hub.Subscribe()
	defer leave()

	require.NoError(t, hub.Publish(context.Background(), "t", 1))
	require.NoError(t, hub.Publish(context.Background(), "t", 2))

	event := <-ch
	assert.Equal(t, json.RawMessage("1"), event.Data)
	assert.Len(t, ch, 0)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	ch, leave := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())

	leave()
	leave()
	assert.Equal(t, 0, hub.Subscribers())

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, hub.Publish(context.Background(), "t", 1))
}

func TestHub_EncodeError(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	err := hub.Publish(context.Background(), "t", make(chan int))
	require.Error(t, err)
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, string, interface{}) error { return f.err }

func TestMulti_JoinsErrors(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	ch, leave := hub.Subscribe()
	defer leave()

	boom := errors.New("boom")
	err := Multi{failingPublisher{err: boom}, nil, hub}.Publish(context.Background(), "t", "x")
	require.ErrorIs(t, err, boom)

	// later publishers still receive the event
	event := <-ch
	assert.Equal(t, "t", event.Topic)
}

func TestNATSPublisher_Subject(t *testing.T) {
	assert.Equal(t, "lpr.vehicle", NewNATSPublisher(nil, "lpr").Subject(TopicFlaggedDetection))
	assert.Equal(t, "notification", NewNATSPublisher(nil, "").Subject(TopicNotificationBatch))
}
