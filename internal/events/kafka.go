package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope is the standard event schema published by the panel service.
// Keep it small and stable.
type Envelope struct {
	EventType    string    `json:"eventType"`
	EventVersion string    `json:"eventVersion"`
	OccurredAt   time.Time `json:"occurredAt"`
	AggregateID  string    `json:"aggregateId"` // control id
	Data         any       `json:"data"`
}

// Publisher publishes envelopes keyed by aggregate.
type Publisher interface {
	Publish(ctx context.Context, key string, evt Envelope) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes envelopes to one Kafka topic.
type Producer struct {
	w     messageWriter
	topic string
	now   func() time.Time
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("events: topic is required")
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{}, // partition by message key
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		now:   time.Now,
	}, nil
}

func (p *Producer) Close() error { return p.w.Close() }

// Publish writes a single message. key is the partition key; using the
// control id keeps per-control ordering.
func (p *Producer) Publish(ctx context.Context, key string, evt Envelope) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	val, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: val,
	})
}
