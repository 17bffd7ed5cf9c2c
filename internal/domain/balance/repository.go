package balance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// Repository manages materialized balance rows
type Repository interface {
	// Get returns the current balance, or a zero balance if the account has
	// no row yet.
	Get(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*Balance, error)

	// LockForUpdate ensures the balance row exists and acquires a row lock on
	// it, serializing concurrent appends for the account. Must be called
	// inside a transaction before reading the prior balance.
	LockForUpdate(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*Balance, error)

	// Set writes the new materialized value. Called in the same transaction
	// as the ledger insert that produced it.
	Set(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID, value int64) error

	WithTx(tx pgx.Tx) Repository
}
