package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// OutboxAuditRecorder implements AuditRecorder over the transactional
// outbox: the event row commits with the ledger append it describes and is
// published to the audit sink by the poller.
type OutboxAuditRecorder struct {
	outbox audit.Repository
	logger *slog.Logger
}

// NewOutboxAuditRecorder creates a new outbox-backed audit recorder
func NewOutboxAuditRecorder(outbox audit.Repository, logger *slog.Logger) *OutboxAuditRecorder {
	return &OutboxAuditRecorder{
		outbox: outbox,
		logger: logger,
	}
}

// Record writes the audit event for a freshly appended entry into the outbox
func (r *OutboxAuditRecorder) Record(ctx context.Context, tx pgx.Tx, workflow audit.Workflow, entry *ledger.Entry, correlationID string) error {
	event := audit.NewEvent(workflow, entry, correlationID)

	message, err := audit.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build audit outbox message: %w", err)
	}

	if err := r.outbox.WithTx(tx).Create(ctx, message); err != nil {
		return err
	}

	r.logger.Debug("Audit event recorded",
		"workflow", string(workflow),
		"event_id", event.ID.String(),
		"entry_id", entry.ID.String(),
	)

	return nil
}
