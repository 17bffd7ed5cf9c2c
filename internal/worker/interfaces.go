// Package worker hosts the settlement consumer side: the Kafka message
// handler, the ants-backed settlement pool and the audit outbox poller.
package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/storefront-ledger/internal/domain/order"
)

// Settler marks one order paid. Implemented by engine.SettlementService and
// wrapped by the worker pool.
type Settler interface {
	Settle(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, correlationID string) (*order.Order, error)
}

// DeadLetterPublisher moves a poison message out of the settlement topic
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, reason string) error
}
