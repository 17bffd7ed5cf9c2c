package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// LedgerAppender implements Appender over the ledger and balance
// repositories.
//
// Concurrency: the balance row for (storeID, accountKey, stream) is locked
// before the prior balance is read, so two concurrent appends on the same
// account cannot both observe the same prior value. Appends on different
// accounts proceed in parallel.
type LedgerAppender struct {
	entries  ledger.Repository
	balances balance.Repository
	logger   *slog.Logger
}

// NewLedgerAppender creates the append/projection primitive
func NewLedgerAppender(entries ledger.Repository, balances balance.Repository, logger *slog.Logger) *LedgerAppender {
	return &LedgerAppender{
		entries:  entries,
		balances: balances,
		logger:   logger,
	}
}

// Append validates the movement, serializes on the account, computes
// balanceAfter = prior + amount, writes the entry and projects the new
// balance. Duplicate-reference violations surface as
// ledger.ErrDuplicateReference so callers can treat the movement as already
// processed.
func (a *LedgerAppender) Append(ctx context.Context, tx pgx.Tx, params AppendParams) (*ledger.Entry, error) {
	if params.Amount == 0 {
		return nil, ledger.ErrInvalidAmount{Stream: params.Stream}
	}
	if !params.Stream.Valid(params.Type) {
		return nil, ledger.ErrInvalidType{Stream: params.Stream, Type: params.Type}
	}

	balancesTx := a.balances.WithTx(tx)

	prior, err := balancesTx.LockForUpdate(ctx, params.Stream, params.StoreID, params.AccountKey)
	if err != nil {
		return nil, err
	}

	balanceAfter := prior.Current + params.Amount

	// Customer streams must not go negative; the store stream may (fees can
	// exceed a near-zero revenue balance).
	if params.Stream != ledger.StreamStore && balanceAfter < 0 {
		return nil, ErrInsufficientFunds{
			StoreID:    params.StoreID,
			CustomerID: params.AccountKey,
			Required:   -params.Amount,
			Available:  prior.Current,
		}
	}

	entry := &ledger.Entry{
		ID:           uuid.New(),
		Stream:       params.Stream,
		StoreID:      params.StoreID,
		AccountKey:   params.AccountKey,
		Type:         params.Type,
		Amount:       params.Amount,
		BalanceAfter: balanceAfter,
		ReferenceID:  params.ReferenceID,
		Currency:     params.Currency,
		Note:         params.Note,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    time.Now().UTC(),
		Fee:          params.Fee,
		PlatformFee:  params.PlatformFee,
		AvailableAt:  params.AvailableAt,
	}

	// The insert runs under a savepoint: a unique-violation on the reference
	// is an expected retry outcome for settlement and refund, and the caller's
	// transaction must stay usable after it.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.entries.WithTx(sp).Insert(ctx, entry); err != nil {
		_ = sp.Rollback(ctx)
		return nil, err
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, err
	}

	if err := balancesTx.Set(ctx, params.Stream, params.StoreID, params.AccountKey, balanceAfter); err != nil {
		return nil, err
	}

	a.logger.Debug("Ledger entry appended",
		"stream", string(params.Stream),
		"type", string(params.Type),
		"account_key", params.AccountKey.String(),
		"amount", params.Amount,
		"balance_after", balanceAfter,
	)

	return entry, nil
}
