package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// ReservationDecision is the outcome the reservation scheduler acts on
type ReservationDecision string

const (
	// DecisionReadyToConfirm: no prepayment required, reservation may
	// confirm immediately
	DecisionReadyToConfirm ReservationDecision = "READY_TO_CONFIRM"
	// DecisionPending: prepayment is required but could not be taken from
	// credit; an explicit payment step must follow
	DecisionPending ReservationDecision = "PENDING"
	// DecisionReady: the hold was placed and the reservation is funded
	DecisionReady ReservationDecision = "READY"
)

// HoldParams describes a reservation prepayment attempt
type HoldParams struct {
	StoreID       uuid.UUID
	CustomerID    *uuid.UUID // nil for anonymous customers
	ReservationID uuid.UUID
	TotalCost     int64 // reservation cost in store currency minor units
	Percentage    int64 // store prepaid-percentage policy, 0-100
	ActorID       *uuid.UUID
	CorrelationID string
}

// HoldResult reports the decision and, when a hold was placed, its artifacts
type HoldResult struct {
	Decision        ReservationDecision
	RequiredPrepaid int64 // store currency minor units
	RequiredCredit  int64 // credit points
	AnchorOrder     *order.Order
	Entry           *ledger.Entry
}

// HoldService implements the reservation prepayment workflow. A HOLD, not a
// SPEND, is appended: revenue is recognized only when the reservation is
// fulfilled, and a hold lets cancellation reverse the exact amount.
type HoldService struct {
	db       persistence.TxRunner
	orders   order.Repository
	stores   store.Repository
	balances balance.Repository
	appender Appender
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewHoldService creates a new prepaid-hold workflow service
func NewHoldService(
	db persistence.TxRunner,
	orders order.Repository,
	stores store.Repository,
	balances balance.Repository,
	appender Appender,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) *HoldService {
	return &HoldService{
		db:       db,
		orders:   orders,
		stores:   stores,
		balances: balances,
		appender: appender,
		audit:    auditRecorder,
		logger:   logger,
	}
}

// PlaceHold evaluates the store's prepayment policy and, when the customer's
// credit covers it, atomically creates the anchor order and appends the HOLD.
// No store-stream entry is written: store-side revenue recognition is
// deferred to reservation completion.
func (s *HoldService) PlaceHold(ctx context.Context, params HoldParams) (*HoldResult, error) {
	logger := s.logger
	if params.CorrelationID != "" {
		logger = s.logger.With("correlation_id", params.CorrelationID)
	}

	if params.Percentage < 0 || params.Percentage > 100 {
		return nil, ErrValidation{Reason: "prepaid percentage must be between 0 and 100"}
	}
	if params.TotalCost < 0 {
		return nil, ErrValidation{Reason: "total cost must not be negative"}
	}

	// No prepayment owed: the reservation can confirm without touching the
	// ledger.
	if params.Percentage == 0 || params.TotalCost == 0 {
		return &HoldResult{Decision: DecisionReadyToConfirm}, nil
	}

	requiredPrepaid := ceilDiv(params.TotalCost*params.Percentage, 100)

	st, err := s.stores.GetByID(ctx, params.StoreID)
	if err != nil {
		return nil, err
	}

	requiredCredit := ceilDiv(requiredPrepaid, st.ExchangeRate())

	// Credit cannot fund the hold for this store or customer: leave the
	// reservation pending an explicit payment step.
	if !st.UseCustomerCredit || params.CustomerID == nil {
		return &HoldResult{
			Decision:        DecisionPending,
			RequiredPrepaid: requiredPrepaid,
			RequiredCredit:  requiredCredit,
		}, nil
	}

	current, err := s.balances.Get(ctx, ledger.StreamCredit, params.StoreID, *params.CustomerID)
	if err != nil {
		return nil, err
	}
	if !current.Covers(requiredCredit) {
		logger.Info("Credit balance insufficient for prepaid hold",
			"store_id", params.StoreID.String(),
			"customer_id", params.CustomerID.String(),
			"required_credit", requiredCredit,
			"available", current.Current,
		)
		return &HoldResult{
			Decision:        DecisionPending,
			RequiredPrepaid: requiredPrepaid,
			RequiredCredit:  requiredCredit,
		}, nil
	}

	var result *HoldResult

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ordersTx := s.orders.WithTx(tx)

		pm, err := ordersTx.FindPaymentMethodByCode(ctx, params.StoreID, order.MethodCredit)
		if err != nil {
			return err
		}
		sm, err := ordersTx.FindShippingMethodByCode(ctx, params.StoreID, order.MethodDigital)
		if err != nil {
			return err
		}

		anchor, err := order.NewAnchor(params.StoreID, params.CustomerID, order.KindPrepaid, requiredPrepaid, st.Currency, pm.ID, sm.ID)
		if err != nil {
			return ErrValidation{Reason: err.Error()}
		}

		if err := ordersTx.Create(ctx, anchor); err != nil {
			return err
		}

		entry, err := s.appender.Append(ctx, tx, AppendParams{
			Stream:      ledger.StreamCredit,
			StoreID:     params.StoreID,
			AccountKey:  *params.CustomerID,
			Type:        ledger.EntryTypeHold,
			Amount:      -requiredCredit,
			ReferenceID: &anchor.ID,
			Currency:    CreditUnit,
			Note:        fmt.Sprintf("prepaid hold for reservation %s", params.ReservationID),
			CreatedBy:   params.ActorID,
		})
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.WorkflowHold, entry, params.CorrelationID); err != nil {
			return err
		}

		result = &HoldResult{
			Decision:        DecisionReady,
			RequiredPrepaid: requiredPrepaid,
			RequiredCredit:  requiredCredit,
			AnchorOrder:     anchor,
			Entry:           entry,
		}
		return nil
	})
	if err != nil {
		// The eligibility check raced with another debit and lost; the
		// append's balance guard caught it. The reservation stays pending.
		if errors.Is(err, ErrInsufficientFunds{}) {
			logger.Warn("Concurrent debit consumed the credit balance before the hold committed",
				"store_id", params.StoreID.String(),
				"customer_id", params.CustomerID.String(),
			)
			return &HoldResult{
				Decision:        DecisionPending,
				RequiredPrepaid: requiredPrepaid,
				RequiredCredit:  requiredCredit,
			}, nil
		}
		return nil, err
	}

	logger.Info("Prepaid hold placed",
		"store_id", params.StoreID.String(),
		"customer_id", params.CustomerID.String(),
		"reservation_id", params.ReservationID.String(),
		"required_prepaid", requiredPrepaid,
		"required_credit", requiredCredit,
		"anchor_order_id", result.AnchorOrder.ID.String(),
	)

	return result, nil
}
