package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/storefront-ledger/internal/config"
)

// DLQProducer moves settlement requests that cannot be processed to a dead
// letter topic so the consumer can keep making progress
type DLQProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewDLQProducer creates the dead letter producer and ensures the topic
// exists. Returns nil when no DLQ topic is configured.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Warn("No DLQ topic configured, poison messages will be dropped")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for DLQ producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	return &DLQProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DLQTopic,
	}, nil
}

// Publish forwards the original message payload to the DLQ with the failure
// reason attached as a header
func (p *DLQProducer) Publish(ctx context.Context, original kafka.Message, reason string) error {
	msg := kafka.Message{
		Key:   original.Key,
		Value: original.Value,
		Headers: append(original.Headers, kafka.Header{
			Key:   "dlq-reason",
			Value: []byte(reason),
		}),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message to DLQ",
			"topic", p.topic,
			"key", string(original.Key),
			"error", err,
		)
		return fmt.Errorf("failed to publish to DLQ topic %s: %w", p.topic, err)
	}

	p.logger.Warn("Message moved to DLQ",
		"topic", p.topic,
		"key", string(original.Key),
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
