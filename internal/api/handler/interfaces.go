package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/engine"
)

// SettlementQueuer publishes settlement requests to the queue
type SettlementQueuer interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// TopUpService runs the top-up workflow
type TopUpService interface {
	TopUp(ctx context.Context, params engine.TopUpParams) (*engine.TopUpResult, error)
}

// HoldService runs the prepaid-hold workflow
type HoldService interface {
	PlaceHold(ctx context.Context, params engine.HoldParams) (*engine.HoldResult, error)
}

// RefundService runs the cancellation refund workflow
type RefundService interface {
	Refund(ctx context.Context, params engine.RefundParams) (*engine.RefundResult, error)
}

// BalanceReader reads materialized account balances
type BalanceReader interface {
	Get(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error)
}

// EntryLister reads paginated ledger entries for an account
type EntryLister interface {
	ListForAccount(ctx context.Context, stream ledger.Stream, storeID, accountKey uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error)
}
