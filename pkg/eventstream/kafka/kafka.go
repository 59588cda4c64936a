// Package kafka implements the eventstream.Publisher interface on a Kafka
// topic via segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	segkafka "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/chatstream/pkg/eventstream"
)

// Config holds connection settings for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses (host:port).
	Brokers []string

	// Topic receives the turn events.
	Topic string
}

// Publisher writes turn events to a Kafka topic, keyed by conversation ID so
// one conversation's turns land in order on a single partition.
type Publisher struct {
	writer *segkafka.Writer
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	return &Publisher{
		writer: &segkafka.Writer{
			Addr:     segkafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &segkafka.Hash{},
		},
	}, nil
}

// PublishTurn serializes the event as JSON and writes it to the topic.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling turn event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, segkafka.Message{
		Key:   []byte(event.Source.ConversationID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing turn event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
