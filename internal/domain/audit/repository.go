package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository manages the transactional audit outbox
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// Sink receives published audit events (MongoDB in production)
type Sink interface {
	Record(ctx context.Context, event *Event) error
}

// ErrMessageNotFound indicates a missing outbox row
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "audit outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
