package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	refID := uuid.New()
	entry := &ledger.Entry{
		ID:          uuid.New(),
		Stream:      ledger.StreamStore,
		StoreID:     uuid.New(),
		Type:        ledger.EntryTypeSale,
		Amount:      955,
		Fee:         -35,
		PlatformFee: -10,
		ReferenceID: &refID,
	}

	event := NewEvent(WorkflowSettlement, entry, "corr-1")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, WorkflowSettlement, event.Workflow)
	assert.Equal(t, entry.StoreID, event.StoreID)
	assert.Equal(t, &refID, event.OrderID)
	assert.Equal(t, entry.ID, event.EntryID)
	assert.Equal(t, int64(955), event.Amount)
	assert.Equal(t, int64(-35), event.Fee)
	assert.Equal(t, int64(-10), event.PlatformFee)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestMessage_RoundTrip(t *testing.T) {
	entry := &ledger.Entry{ID: uuid.New(), Stream: ledger.StreamCredit, StoreID: uuid.New(), Amount: -40}
	event := NewEvent(WorkflowHold, entry, "corr-2")

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.EventID)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.Equal(t, 0, msg.Attempts)

	got, err := msg.GetEvent()
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Workflow, got.Workflow)
	assert.Equal(t, event.Amount, got.Amount)
	assert.Equal(t, event.CorrelationID, got.CorrelationID)
}

func TestMessage_StateTransitions(t *testing.T) {
	msg := &Message{Status: OutboxStatusPending}

	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	assert.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsProcessed()
	assert.Equal(t, OutboxStatusProcessed, msg.Status)

	msg.MarkAsFailed()
	assert.Equal(t, OutboxStatusFailedToPublish, msg.Status)
}

func TestMessage_GetEvent_InvalidPayload(t *testing.T) {
	msg := &Message{Payload: []byte("{not json")}

	event, err := msg.GetEvent()
	assert.Error(t, err)
	assert.Nil(t, event)
}
