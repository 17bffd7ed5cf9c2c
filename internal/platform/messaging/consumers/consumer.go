// Package consumers contains the Kafka consumer feeding the settlement worker.
package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/storefront-ledger/internal/config"
)

// MessageHandler processes a single settlement request message. A nil return
// commits the offset; a non-nil return leaves the message uncommitted for
// redelivery.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// KafkaConsumer reads settlement requests from the settlement topic as part
// of a consumer group
type KafkaConsumer struct {
	logger *slog.Logger
	reader *kafka.Reader
}

// NewKafkaConsumer creates a consumer bound to the settlement topic
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.SettlementTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
	})

	return &KafkaConsumer{
		logger: logger,
		reader: reader,
	}
}

// Subscribe fetches messages until the context is cancelled, dispatching each
// one to the handler. Offsets are committed only after the handler returns
// nil, so a crash mid-settlement causes redelivery rather than loss.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribing to settlement topic",
		"topic", c.reader.Config().Topic,
		"group", c.reader.Config().GroupID,
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer context cancelled, stopping")
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("Handler failed, message will be redelivered",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit message offset: %w", err)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	c.logger.Info("Closing settlement consumer")
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
