package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives design events when no topic is configured.
const DefaultTopic = "gardencore.designs"

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by Event.Key.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		WriteTimeout:           timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(evt.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
			{Key: "event-id", Value: []byte(evt.ID)},
		},
		Time: evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }
