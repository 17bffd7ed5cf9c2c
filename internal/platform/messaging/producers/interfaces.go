package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter abstracts kafka.Writer for testability
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessagePublisher publishes a keyed message to the settlement topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}
