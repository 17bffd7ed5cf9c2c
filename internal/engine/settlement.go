package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// SettlementService drives the mark-order-paid transition. Settlement is the
// retry target of the queue worker, so every precondition short-circuits
// idempotently: an already-paid order, or an order that already has a store
// ledger entry, is returned unchanged rather than re-booked.
type SettlementService struct {
	db       persistence.TxRunner
	orders   order.Repository
	stores   store.Repository
	appender Appender
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewSettlementService creates a new settlement workflow service
func NewSettlementService(
	db persistence.TxRunner,
	orders order.Repository,
	stores store.Repository,
	appender Appender,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		db:       db,
		orders:   orders,
		stores:   stores,
		appender: appender,
		audit:    auditRecorder,
		logger:   logger,
	}
}

// Settle marks the order paid and books its store ledger entry in one
// transaction. The idempotency checks run under the order's row lock, so two
// concurrent calls produce exactly one ledger entry.
func (s *SettlementService) Settle(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, correlationID string) (*order.Order, error) {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	var settled *order.Order

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ordersTx := s.orders.WithTx(tx)

		o, err := ordersTx.LockForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		// Already settled: idempotent no-op
		if o.IsPaid {
			logger.Info("Order already paid, settlement is a no-op", "order_id", orderID.String())
			settled = o
			return nil
		}

		// Recharge anchors are booked by the top-up workflow
		if o.Kind == order.KindRecharge {
			return ErrWrongWorkflow{OrderID: orderID}
		}

		st, err := s.stores.GetByID(ctx, o.StoreID)
		if err != nil {
			return err
		}

		pm, err := ordersTx.GetPaymentMethod(ctx, o.PaymentMethodID)
		if err != nil {
			return err
		}

		var fee int64
		if st.UsesPlatformProcessor() {
			fee = -(mulBps(o.Total, pm.FeeRateBps) + pm.FeeAdditional)
		}
		feeTax := mulBps(fee, feeTaxRateBps)

		var platformFee int64
		if st.Tier == store.TierFree {
			platformFee = -mulBps(o.Total, platformFeeRateBps)
		}

		availableAt := o.UpdatedAt.Add(time.Duration(pm.ClearDays) * 24 * time.Hour)

		unpaid := *o
		now := time.Now().UTC()
		o.MarkPaid(now, fee+feeTax+platformFee)

		entry, err := s.appender.Append(ctx, tx, AppendParams{
			Stream:      ledger.StreamStore,
			StoreID:     o.StoreID,
			AccountKey:  o.StoreID,
			Type:        ledger.EntryTypeSale,
			Amount:      o.Total + fee + platformFee,
			ReferenceID: &o.ID,
			Currency:    o.Currency,
			Note:        fmt.Sprintf("order settlement; fee tax %d", abs(feeTax)),
			CreatedBy:   actorID,
			Fee:         fee,
			PlatformFee: platformFee,
			AvailableAt: &availableAt,
		})
		if err != nil {
			// A store entry already exists for the order: another caller won
			// the race after our paid check. Report the current state.
			if errors.Is(err, ledger.ErrDuplicateReference{}) {
				logger.Warn("Store ledger entry already exists for order, settlement is a no-op", "order_id", orderID.String())
				settled = &unpaid
				return nil
			}
			return err
		}

		if err := ordersTx.Update(ctx, o); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.WorkflowSettlement, entry, correlationID); err != nil {
			return err
		}

		logger.Info("Order settled",
			"order_id", orderID.String(),
			"store_id", o.StoreID.String(),
			"amount", entry.Amount,
			"fee", fee,
			"fee_tax", feeTax,
			"platform_fee", platformFee,
			"available_at", availableAt,
		)

		settled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settled, nil
}
