package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes events to Kafka through one long-lived writer. The
// topic is set per message.
type Publisher struct {
	writer *kafkaGo.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher for the given brokers
func NewPublisher(brokers []string, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Balancer:     &kafkaGo.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafkaGo.RequireOne,
		},
		logger: logger,
	}
}

func (p *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close flushes pending messages
func (p *Publisher) Close() error {
	return p.writer.Close()
}
