// Package shared holds the message contracts exchanged between the API and
// the settlement worker.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// SettlementRequest asks the worker to mark an order paid. The queue may
// deliver it more than once; the settlement workflow is idempotent under
// redelivery.
type SettlementRequest struct {
	OrderID       uuid.UUID  `json:"order_id"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	CorrelationID string     `json:"correlation_id"`
	RequestedAt   time.Time  `json:"requested_at"`
}
