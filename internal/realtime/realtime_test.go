package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/logger"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Publish(ctx context.Context, topic, key string, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ChangeEvent{}
	}
}

func TestHubFiltersByTable(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookings := hub.Subscribe(ctx, "bookings")
	all := hub.Subscribe(ctx)

	hub.Publish(NewChangeEvent("visitors", Insert, "v1", nil))
	hub.Publish(NewChangeEvent("bookings", Insert, "b1", map[string]string{"reference": "SMB-AAAA2222"}))

	assert.Equal(t, "visitors", receive(t, all).Table)
	assert.Equal(t, "bookings", receive(t, all).Table)

	ev := receive(t, bookings)
	assert.Equal(t, "b1", ev.RecordID)
	assert.JSONEq(t, `{"reference":"SMB-AAAA2222"}`, string(ev.Record))
	assert.Len(t, bookings, 0)
}

func TestHubUnsubscribesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	assert.Equal(t, 1, hub.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	hub.Publish(NewChangeEvent("tours", Delete, "t1", nil))
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx)

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(NewChangeEvent("visitors", Update, "v", nil))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestKafkaPublisherKeysByTable(t *testing.T) {
	w := new(MockWriter)
	w.On("Publish", mock.Anything, "samba.changes", "bookings", mock.MatchedBy(func(v []byte) bool {
		var ev ChangeEvent
		return json.Unmarshal(v, &ev) == nil && ev.Type == Update && ev.RecordID == "b9"
	})).Return(nil).Once()

	p := NewKafkaPublisher(w, "samba.changes")
	require.NoError(t, p.Publish(context.Background(), NewChangeEvent("bookings", Update, "b9", nil)))
	w.AssertExpectations(t)
}

func TestEmitterSwallowsPublishErrors(t *testing.T) {
	w := new(MockWriter)
	w.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	e := NewEmitter(NewKafkaPublisher(w, "samba.changes"), logger.NewNopLogger())
	e.Emit(context.Background(), "tours", Insert, "t1", nil)
	w.AssertNumberOfCalls(t, "Publish", 1)

	var nilEmitter *Emitter
	nilEmitter.Emit(context.Background(), "tours", Insert, "t1", nil)
}

func TestChangeFeedConsumerRepublishes(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx, "tours")

	c := NewChangeFeedConsumer(nil, hub, logger.NewNopLogger())
	raw, _ := json.Marshal(NewChangeEvent("tours", Insert, "t1", nil))

	require.NoError(t, c.HandleMessage(ctx, kafka.Message{Value: []byte("not json")}))
	require.NoError(t, c.HandleMessage(ctx, kafka.Message{Value: []byte(`{"record_id":"x"}`)}))
	require.NoError(t, c.HandleMessage(ctx, kafka.Message{Value: raw}))

	assert.Equal(t, "t1", receive(t, ch).RecordID)
	assert.Len(t, ch, 0)
}
