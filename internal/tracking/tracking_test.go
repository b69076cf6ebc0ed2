package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaTracker_Track(t *testing.T) {
	w := &fakeWriter{}
	tr := NewKafkaTracker(w)

	tr.Track(context.Background(), Event{
		Name:            Purchase,
		PaymentIntentID: "pi_1",
		Value:           1178,
		Currency:        "USD",
		PlanName:        "Orlando - 3 Days",
	})

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "pi_1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "purchase", string(msg.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, Purchase, got.Name)
	assert.Equal(t, 1178.0, got.Value)
	assert.False(t, got.OccurredAt.IsZero())

	require.NoError(t, tr.Close())
	assert.True(t, w.closed)
}

func TestKafkaTracker_ErrorsAreSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	tr := NewKafkaTracker(w)

	assert.NotPanics(t, func() {
		tr.Track(context.Background(), Event{Name: BeginCheckout, PaymentIntentID: "pi_2"})
	})
	assert.Empty(t, w.msgs)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter("checkout-events", "k1:9092")
	defer w.Close()

	assert.Equal(t, "checkout-events", w.Topic)
	assert.True(t, w.Async)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, 50*time.Millisecond, w.BatchTimeout)
}

func TestLogTracker(t *testing.T) {
	tr := NewLogTracker()
	assert.NotPanics(t, func() {
		tr.Track(context.Background(), Event{Name: PaymentFailed, PaymentIntentID: "pi_3"})
	})
	assert.NoError(t, tr.Close())
}
