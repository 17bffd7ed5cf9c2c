package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/engine"
)

// SettlementEventHandler turns settlement topic messages into settlement
// calls. Transient failures leave the offset uncommitted for redelivery;
// poison messages and permanently unprocessable requests go to the DLQ so
// the partition keeps moving.
type SettlementEventHandler struct {
	settler Settler
	dlq     DeadLetterPublisher
	logger  *slog.Logger
}

func NewSettlementEventHandler(logger *slog.Logger, settler Settler, dlq DeadLetterPublisher) *SettlementEventHandler {
	return &SettlementEventHandler{
		settler: settler,
		dlq:     dlq,
		logger:  logger,
	}
}

// HandleMessage processes one Kafka message. A nil return commits the offset.
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var request shared.SettlementRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(msg.Key),
		)
		return h.deadLetter(ctx, msg, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()), err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received settlement request",
		"order_id", request.OrderID.String(),
		"requested_at", request.RequestedAt,
	)

	if _, err := h.settler.Settle(ctx, request.OrderID, request.ActorID, request.CorrelationID); err != nil {
		// Wrong-workflow and missing-order failures never succeed on retry:
		// the order either is a recharge anchor or does not exist. Park them
		// instead of looping.
		if errors.Is(err, engine.ErrWrongWorkflow{}) || errors.Is(err, order.ErrOrderNotFound{}) {
			logger.Warn("Settlement request is permanently unprocessable",
				"order_id", request.OrderID.String(),
				"error", err,
			)
			return h.deadLetter(ctx, msg, err.Error(), err)
		}

		logger.Error("Failed to settle order, message will be retried",
			"order_id", request.OrderID.String(),
			"error", err,
		)
		return fmt.Errorf("settling order %s failed: %w", request.OrderID.String(), err)
	}

	logger.Info("Settlement request processed", "order_id", request.OrderID.String())
	return nil
}

// deadLetter parks the message and commits the offset; when no DLQ is
// configured or publishing fails, the original error is returned so the
// message stays uncommitted.
func (h *SettlementEventHandler) deadLetter(ctx context.Context, msg kafka.Message, reason string, original error) error {
	if h.dlq == nil {
		return fmt.Errorf("no DLQ configured for unprocessable message: %w", original)
	}

	if err := h.dlq.Publish(ctx, msg, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", original,
			"message_key", string(msg.Key),
		)
		return fmt.Errorf("DLQ publish failed: %w", original)
	}

	return nil
}
