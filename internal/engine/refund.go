package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// RefundParams describes a cancellation-driven refund attempt. The
// cancellation-policy decision (inside/outside the no-refund window) belongs
// to the caller; by the time this workflow runs, a refund is owed if the
// ledger shows one.
type RefundParams struct {
	OrderID       uuid.UUID
	ActorID       *uuid.UUID
	Note          string
	CorrelationID string
}

// RefundResult reports whether funds moved. Refunded=false with a reason is
// a normal outcome, not an error: cancellation proceeds regardless.
type RefundResult struct {
	Refunded bool
	Amount   int64
	Stream   ledger.Stream
	Reason   string // populated when Refunded is false
	Entry    *ledger.Entry
}

// RefundService reverses the hold or spend that funded an order
type RefundService struct {
	db       persistence.TxRunner
	orders   order.Repository
	entries  ledger.Repository
	appender Appender
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewRefundService creates a new refund workflow service
func NewRefundService(
	db persistence.TxRunner,
	orders order.Repository,
	entries ledger.Repository,
	appender Appender,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) *RefundService {
	return &RefundService{
		db:       db,
		orders:   orders,
		entries:  entries,
		appender: appender,
		audit:    auditRecorder,
		logger:   logger,
	}
}

// Refund classifies which stream funded the order, guards against double
// refunds and appends the reversing entry. At most one refund can ever exist
// per reference; the uniqueness constraint backs the in-transaction check.
func (s *RefundService) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	logger := s.logger
	if params.CorrelationID != "" {
		logger = s.logger.With("correlation_id", params.CorrelationID)
	}

	var result *RefundResult

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ordersTx := s.orders.WithTx(tx)
		entriesTx := s.entries.WithTx(tx)

		o, err := ordersTx.GetByID(ctx, params.OrderID)
		if err != nil {
			return err
		}

		if !o.IsPaid {
			result = &RefundResult{Refunded: false, Reason: "order was never paid"}
			return nil
		}

		// Classify the funding source: credit first (spend or hold), then
		// fiat. Orders paid through an external gateway have no funding
		// entry in either stream and get no refund from this engine.
		funding, err := entriesTx.FindFunding(ctx, ledger.StreamCredit, params.OrderID)
		if err != nil {
			return err
		}
		if funding == nil {
			funding, err = entriesTx.FindFunding(ctx, ledger.StreamFiat, params.OrderID)
			if err != nil {
				return err
			}
		}
		if funding == nil {
			result = &RefundResult{Refunded: false, Reason: "no funding entry found for order"}
			return nil
		}

		refunded, err := entriesTx.HasRefund(ctx, funding.Stream, params.OrderID)
		if err != nil {
			return err
		}
		if refunded {
			result = &RefundResult{Refunded: false, Reason: "refund already processed"}
			return nil
		}

		amount := abs(funding.Amount)

		entry, err := s.appender.Append(ctx, tx, AppendParams{
			Stream:      funding.Stream,
			StoreID:     funding.StoreID,
			AccountKey:  funding.AccountKey,
			Type:        ledger.EntryTypeRefund,
			Amount:      amount,
			ReferenceID: &params.OrderID,
			Currency:    funding.Currency,
			Note:        params.Note,
			CreatedBy:   params.ActorID,
		})
		if err != nil {
			// Another refund for the same reference committed between our
			// check and the insert.
			if errors.Is(err, ledger.ErrDuplicateReference{}) {
				result = &RefundResult{Refunded: false, Reason: "refund already processed"}
				return nil
			}
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.WorkflowRefund, entry, params.CorrelationID); err != nil {
			return err
		}

		result = &RefundResult{
			Refunded: true,
			Amount:   amount,
			Stream:   funding.Stream,
			Entry:    entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Refunded {
		logger.Info("Refund appended",
			"order_id", params.OrderID.String(),
			"stream", string(result.Stream),
			"amount", result.Amount,
		)
	} else {
		logger.Info("Refund not performed",
			"order_id", params.OrderID.String(),
			"reason", result.Reason,
		)
	}

	return result, nil
}
