// Package tracking publishes server-side checkout analytics events.
// Tracking is best effort: failures are logged and never reach the caller.
package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vpoguide/backend/internal/logutil"
)

// Event names mirror the browser's analytics events.
const (
	BeginCheckout = "begin_checkout"
	Purchase      = "purchase"
	PaymentFailed = "payment_failed"
)

// Event is one analytics record.
type Event struct {
	Name            string            `json:"event"`
	PaymentIntentID string            `json:"paymentIntentId"`
	Value           float64           `json:"value"`
	Currency        string            `json:"currency"`
	PlanName        string            `json:"plan,omitempty"`
	Days            int               `json:"days,omitempty"`
	Passengers      int               `json:"passengers,omitempty"`
	Destination     string            `json:"destination,omitempty"`
	Language        string            `json:"language,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
	OccurredAt      time.Time         `json:"occurredAt"`
}

// Tracker records analytics events.
type Tracker interface {
	Track(ctx context.Context, e Event)
	Close() error
}

// MessageWriter is the part of *kafka.Writer the tracker uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTracker publishes events keyed by payment intent so all events of one
// checkout land on the same partition.
type KafkaTracker struct {
	writer MessageWriter
}

// NewKafkaWriter builds an async writer for the tracking topic.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logutil.Event("tracking", "publish_failed", "count", len(messages), "error", err)
			}
		},
	}
}

func NewKafkaTracker(w MessageWriter) *KafkaTracker {
	return &KafkaTracker{writer: w}
}

func (t *KafkaTracker) Track(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		logutil.EventCtx(ctx, "tracking", "marshal_failed", "event", e.Name, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(e.PaymentIntentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Name)},
		},
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		logutil.EventCtx(ctx, "tracking", "publish_failed",
			"event", e.Name, "payment_intent", e.PaymentIntentID, "error", err)
	}
}

func (t *KafkaTracker) Close() error {
	return t.writer.Close()
}

// LogTracker writes events to the log when no broker is configured.
type LogTracker struct{}

func NewLogTracker() *LogTracker { return &LogTracker{} }

func (LogTracker) Track(ctx context.Context, e Event) {
	logutil.EventCtx(ctx, "tracking", e.Name,
		"payment_intent", e.PaymentIntentID,
		"value", e.Value,
		"currency", e.Currency,
		"plan", e.PlanName)
}

func (LogTracker) Close() error { return nil }
