package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storefront-ledger/internal/domain/audit"
)

// AuditPublisher delivers one outbox row to the audit sink
type AuditPublisher interface {
	PublishToSink(ctx context.Context, message *audit.Message) error
}

type auditPublisher struct {
	outboxRepo audit.Repository
	sink       audit.Sink
	logger     *slog.Logger
}

// NewAuditPublisher creates a publisher writing outbox events to the sink
func NewAuditPublisher(outboxRepo audit.Repository, sink audit.Sink, logger *slog.Logger) AuditPublisher {
	return &auditPublisher{
		outboxRepo: outboxRepo,
		sink:       sink,
		logger:     logger,
	}
}

// PublishToSink records the event carried by the outbox row and marks the row
// processed. The sink deduplicates on event id, so redelivery after a crash
// between Record and UpdateStatus is harmless.
func (p *auditPublisher) PublishToSink(ctx context.Context, message *audit.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal audit event from outbox payload",
			"outbox_id", message.ID, "error", err,
		)
		// Malformed payloads never publish; park the row instead of retrying.
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark outbox row FAILED_TO_PUBLISH after unmarshal error",
				"outbox_id", message.ID, "update_error", updateErr,
			)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.sink.Record(ctx, event); err != nil {
		return fmt.Errorf("failed to record audit event %s: %w", event.ID.String(), err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, audit.OutboxStatusProcessed); err != nil {
		logger.Error("Audit event recorded but failed to mark outbox row PROCESSED",
			"outbox_id", message.ID, "event_id", event.ID.String(), "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", event.ID.String(), message.ID, err)
	}

	logger.Debug("Audit event published",
		"outbox_id", message.ID,
		"event_id", event.ID.String(),
		"workflow", string(event.Workflow),
	)
	return nil
}
