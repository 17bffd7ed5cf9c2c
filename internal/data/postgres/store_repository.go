package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// StoreRepository implements store.Repository for PostgreSQL
type StoreRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewStoreRepository creates a new PostgreSQL store repository
func NewStoreRepository(logger *slog.Logger, db *persistence.PostgresDB) store.Repository {
	return &StoreRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a store's settlement-relevant configuration
func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	query := `
		SELECT id, tier, has_processor_credentials, credit_exchange_rate, use_customer_credit, currency
		FROM stores
		WHERE id = $1
	`

	var s store.Store
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Tier,
		&s.HasProcessorCredentials,
		&s.CreditExchangeRate,
		&s.UseCustomerCredit,
		&s.Currency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStoreNotFound{StoreID: id}
		}
		r.logger.Error("Failed to get store", "store_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &s, nil
}
