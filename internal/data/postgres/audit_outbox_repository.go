package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// AuditOutboxRepository implements audit.Repository for PostgreSQL
type AuditOutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditOutboxRepository creates a new PostgreSQL audit outbox repository
func NewAuditOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditOutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the outbox row commits
// with the ledger append it describes
func (r *AuditOutboxRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditOutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new pending outbox message
func (r *AuditOutboxRepository) Create(ctx context.Context, message *audit.Message) error {
	query := `
		INSERT INTO audit_outbox (event_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.EventID,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create audit outbox message", "event_id", message.EventID.String(), "error", err)
		return fmt.Errorf("failed to create audit outbox message: %w", err)
	}

	return nil
}

// GetPending returns up to limit unpublished messages, oldest first
func (r *AuditOutboxRepository) GetPending(ctx context.Context, limit int) ([]*audit.Message, error) {
	query := `
		SELECT id, event_id, payload, status, attempts, created_at, last_attempt_at
		FROM audit_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, audit.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending audit outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending audit outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*audit.Message
	for rows.Next() {
		var m audit.Message
		if err := rows.Scan(&m.ID, &m.EventID, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit outbox message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit outbox messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus transitions an outbox message's publishing state
func (r *AuditOutboxRepository) UpdateStatus(ctx context.Context, id int64, status audit.OutboxStatus) error {
	query := `
		UPDATE audit_outbox
		SET status = $1, last_attempt_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update audit outbox status", "id", id, "error", err)
		return fmt.Errorf("failed to update audit outbox status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrMessageNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts bumps the publish attempt counter
func (r *AuditOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE audit_outbox
		SET attempts = attempts + 1, last_attempt_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to increment audit outbox attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment audit outbox attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrMessageNotFound{ID: id}
	}

	return nil
}
