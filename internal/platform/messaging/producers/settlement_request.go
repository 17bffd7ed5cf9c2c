// Package producers contains the Kafka producers for the settlement pipeline.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/storefront-ledger/internal/config"
)

// SettlementRequestProducer publishes settlement requests from the API to
// the worker
type SettlementRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSettlementRequestProducer creates the producer and ensures the topic
// exists
func NewSettlementRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SettlementRequestProducer, error) {
	if cfg.SettlementTopic == "" {
		return nil, fmt.Errorf("kafka settlement topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for settlement producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.SettlementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure settlement topic %s exists: %w", cfg.SettlementTopic, err)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.SettlementTopic,
		Balancer: &kafka.Hash{}, // keyed by order id so retries land on one partition
		// Settlement must not be silently dropped: synchronous writes with
		// full acknowledgement.
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &SettlementRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SettlementTopic,
	}, nil
}

// Publish sends one settlement request keyed by order id
func (p *SettlementRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish settlement request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish settlement request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published settlement request", "topic", p.topic, "key", key)
	return nil
}

func (p *SettlementRequestProducer) Close() error {
	p.logger.Info("Closing settlement request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close settlement kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
