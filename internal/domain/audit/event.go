// Package audit defines the observability events each workflow emits and the
// transactional outbox that carries them to the audit sink. The outbox row is
// written in the same database transaction as the ledger append, so an event
// exists if and only if the movement it describes committed.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// Workflow names the operation that produced an event
type Workflow string

const (
	WorkflowSettlement Workflow = "SETTLEMENT"
	WorkflowTopUp      Workflow = "TOP_UP"
	WorkflowHold       Workflow = "HOLD"
	WorkflowRefund     Workflow = "REFUND"
)

// Event is the audit record for one committed workflow
type Event struct {
	ID            uuid.UUID     `json:"id" bson:"event_id"`
	Workflow      Workflow      `json:"workflow" bson:"workflow"`
	StoreID       uuid.UUID     `json:"store_id" bson:"store_id"`
	OrderID       *uuid.UUID    `json:"order_id,omitempty" bson:"order_id,omitempty"`
	EntryID       uuid.UUID     `json:"entry_id" bson:"entry_id"`
	Stream        ledger.Stream `json:"stream" bson:"stream"`
	Amount        int64         `json:"amount" bson:"amount"`
	Fee           int64         `json:"fee,omitempty" bson:"fee,omitempty"`
	PlatformFee   int64         `json:"platform_fee,omitempty" bson:"platform_fee,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
}

// NewEvent builds the audit record for a freshly appended ledger entry
func NewEvent(workflow Workflow, entry *ledger.Entry, correlationID string) *Event {
	return &Event{
		ID:            uuid.New(),
		Workflow:      workflow,
		StoreID:       entry.StoreID,
		OrderID:       entry.ReferenceID,
		EntryID:       entry.ID,
		Stream:        entry.Stream,
		Amount:        entry.Amount,
		Fee:           entry.Fee,
		PlatformFee:   entry.PlatformFee,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// OutboxStatus tracks publishing state of an outbox row
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Message is one outbox row awaiting publication to the audit sink
type Message struct {
	ID            int64           `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        OutboxStatus    `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.ID,
		Payload:   payload,
		Status:    OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = OutboxStatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = OutboxStatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// GetEvent extracts the audit event from the payload
func (m *Message) GetEvent() (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
