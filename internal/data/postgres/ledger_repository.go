// Package postgres provides PostgreSQL implementations of the domain
// repositories. All repositories accept either the pool or a transaction via
// WithTx so workflows can compose atomic multi-table writes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// LedgerRepository implements ledger.Repository for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the entry insert joins
// the caller's atomic unit of work
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const entryColumns = `id, stream, store_id, account_key, type, amount, balance_after, reference_id, currency, note, created_by, created_at, fee, platform_fee, available_at`

// Insert appends a new immutable entry. The partial unique indexes on
// (stream='STORE', reference_id) and (stream, reference_id, type='REFUND')
// back the duplicate-reference rules; violations map to
// ledger.ErrDuplicateReference so callers can treat them as already-processed.
func (r *LedgerRepository) Insert(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.Stream,
		entry.StoreID,
		entry.AccountKey,
		entry.Type,
		entry.Amount,
		entry.BalanceAfter,
		entry.ReferenceID,
		entry.Currency,
		entry.Note,
		entry.CreatedBy,
		entry.CreatedAt,
		entry.Fee,
		entry.PlatformFee,
		entry.AvailableAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			ref := uuid.Nil
			if entry.ReferenceID != nil {
				ref = *entry.ReferenceID
			}
			return ledger.ErrDuplicateReference{Stream: entry.Stream, ReferenceID: ref}
		}
		r.logger.Error("Failed to insert ledger entry", "stream", string(entry.Stream), "error", err)
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

// FindByReference returns all entries anchored to the reference, newest first
func (r *LedgerRepository) FindByReference(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE stream = $1 AND reference_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.querier.Query(ctx, query, stream, referenceID)
	if err != nil {
		r.logger.Error("Failed to find ledger entries by reference", "stream", string(stream), "reference_id", referenceID.String(), "error", err)
		return nil, fmt.Errorf("failed to find ledger entries by reference: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// FindFunding returns the SPEND or HOLD entry that committed customer funds
// to the reference, or nil if none exists
func (r *LedgerRepository) FindFunding(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE stream = $1 AND reference_id = $2 AND type IN ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	entry, err := r.scanOne(r.querier.QueryRow(ctx, query, stream, referenceID, ledger.EntryTypeSpend, ledger.EntryTypeHold))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find funding entry", "stream", string(stream), "reference_id", referenceID.String(), "error", err)
		return nil, fmt.Errorf("failed to find funding entry: %w", err)
	}

	return entry, nil
}

// HasRefund reports whether a refund already exists for the reference
func (r *LedgerRepository) HasRefund(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE stream = $1 AND reference_id = $2 AND type = $3
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, stream, referenceID, ledger.EntryTypeRefund).Scan(&exists); err != nil {
		r.logger.Error("Failed to check for existing refund", "stream", string(stream), "reference_id", referenceID.String(), "error", err)
		return false, fmt.Errorf("failed to check for existing refund: %w", err)
	}

	return exists, nil
}

// ListForAccount returns paginated entries for the account stream plus the
// total count, newest first
func (r *LedgerRepository) ListForAccount(ctx context.Context, stream ledger.Stream, storeID, accountKey uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE stream = $1 AND store_id = $2 AND account_key = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.querier.Query(ctx, query, stream, storeID, accountKey, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "stream", string(stream), "account_key", accountKey.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery := `
		SELECT COUNT(*) FROM ledger_entries
		WHERE stream = $1 AND store_id = $2 AND account_key = $3
	`

	var total int64
	if err := r.querier.QueryRow(ctx, countQuery, stream, storeID, accountKey).Scan(&total); err != nil {
		r.logger.Error("Failed to count ledger entries", "stream", string(stream), "account_key", accountKey.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return entries, total, nil
}

func (r *LedgerRepository) scanOne(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	err := row.Scan(
		&entry.ID,
		&entry.Stream,
		&entry.StoreID,
		&entry.AccountKey,
		&entry.Type,
		&entry.Amount,
		&entry.BalanceAfter,
		&entry.ReferenceID,
		&entry.Currency,
		&entry.Note,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.Fee,
		&entry.PlatformFee,
		&entry.AvailableAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) scanAll(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
