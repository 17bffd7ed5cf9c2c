package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// BalanceRepository implements balance.Repository for PostgreSQL
type BalanceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL balance repository
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get returns the current balance, defaulting to zero when the account has
// never been written
func (r *BalanceRepository) Get(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error) {
	query := `
		SELECT store_id, customer_id, stream, current_value, updated_at
		FROM account_balances
		WHERE store_id = $1 AND customer_id = $2 AND stream = $3
	`

	var b balance.Balance
	err := r.querier.QueryRow(ctx, query, storeID, customerID, stream).Scan(
		&b.StoreID,
		&b.CustomerID,
		&b.Stream,
		&b.Current,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &balance.Balance{StoreID: storeID, CustomerID: customerID, Stream: stream, Current: 0}, nil
		}
		r.logger.Error("Failed to get balance", "stream", string(stream), "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &b, nil
}

// LockForUpdate serializes appends for one account stream. The row is
// created at zero if absent, then locked with FOR UPDATE; two concurrent
// appends on the same account therefore never read the same prior balance.
func (r *BalanceRepository) LockForUpdate(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error) {
	ensure := `
		INSERT INTO account_balances (store_id, customer_id, stream, current_value, updated_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (store_id, customer_id, stream) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, ensure, storeID, customerID, stream); err != nil {
		r.logger.Error("Failed to ensure balance row", "stream", string(stream), "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	query := `
		SELECT store_id, customer_id, stream, current_value, updated_at
		FROM account_balances
		WHERE store_id = $1 AND customer_id = $2 AND stream = $3
		FOR UPDATE
	`

	var b balance.Balance
	err := r.querier.QueryRow(ctx, query, storeID, customerID, stream).Scan(
		&b.StoreID,
		&b.CustomerID,
		&b.Stream,
		&b.Current,
		&b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to lock balance row", "stream", string(stream), "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock balance row: %w", err)
	}

	return &b, nil
}

// Set writes the new materialized value for the account stream
func (r *BalanceRepository) Set(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID, value int64) error {
	query := `
		INSERT INTO account_balances (store_id, customer_id, stream, current_value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, customer_id, stream)
		DO UPDATE SET current_value = EXCLUDED.current_value, updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query, storeID, customerID, stream, value, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to set balance", "stream", string(stream), "customer_id", customerID.String(), "error", err)
		return fmt.Errorf("failed to set balance: %w", err)
	}

	return nil
}
