package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/api/middleware"
	"github.com/storefront-ledger/internal/domain/shared"
)

// SettlementHandler accepts settlement requests and queues them for the
// worker. The HTTP layer never settles synchronously: the queue is the retry
// and backpressure boundary.
type SettlementHandler struct {
	queuer SettlementQueuer
	logger *slog.Logger
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(logger *slog.Logger, queuer SettlementQueuer) *SettlementHandler {
	return &SettlementHandler{
		queuer: queuer,
		logger: logger,
	}
}

// Queue publishes a settlement request for the order and returns 202
func (h *SettlementHandler) Queue(c *gin.Context) {
	idParam := c.Param("id")
	orderID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid order ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid order ID")
		return
	}

	request := &shared.SettlementRequest{
		OrderID:       orderID,
		CorrelationID: middleware.GetCorrelationID(c),
		RequestedAt:   time.Now().UTC(),
	}

	if err := h.queuer.Publish(c.Request.Context(), orderID.String(), request); err != nil {
		h.logger.Error("Failed to queue settlement request", "order_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"order_id": orderID.String(),
		"status":   "QUEUED",
	})
}
