// Package engine implements the ledger and payment-settlement core: the
// atomic append/projection primitive and the settlement, top-up,
// prepaid-hold and refund workflows built on it. Every workflow is a
// short-lived request-scoped unit of work and is idempotent under retry.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// AppendParams describes one ledger append plus its balance projection
type AppendParams struct {
	Stream      ledger.Stream
	StoreID     uuid.UUID
	AccountKey  uuid.UUID
	Type        ledger.EntryType
	Amount      int64
	ReferenceID *uuid.UUID
	Currency    string
	Note        string
	CreatedBy   *uuid.UUID

	// Store stream only
	Fee         int64
	PlatformFee int64
	AvailableAt *time.Time
}

// Appender is the primitive every workflow terminates in: it
// serializes on the account's balance row, computes the running balance,
// writes the immutable entry and updates the materialized balance, all on
// the caller's transaction.
type Appender interface {
	Append(ctx context.Context, tx pgx.Tx, params AppendParams) (*ledger.Entry, error)
}

// AuditRecorder writes workflow audit events into the transactional outbox
type AuditRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, workflow audit.Workflow, entry *ledger.Entry, correlationID string) error
}
