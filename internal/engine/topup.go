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
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// CreditUnit is the currency/unit label carried on credit stream entries
const CreditUnit = "PT"

// TopUpParams describes a credit or fiat refill
type TopUpParams struct {
	StoreID    uuid.UUID
	CustomerID uuid.UUID
	Stream     ledger.Stream // StreamCredit or StreamFiat

	// CashAmount is the cash received, in store currency minor units.
	// Required for cash-paid top-ups, zero for promotional ones.
	CashAmount int64

	// Amount is the credited value (points or fiat minor units). Required
	// for promotional top-ups; for cash-paid top-ups it overrides the
	// exchange-rate conversion when set.
	Amount int64

	// IsPaid selects the cash-paid mode (anchor order carries the cash
	// total) over the promotional mode (zero-total anchor).
	IsPaid bool

	// RequestID is an optional client idempotency key. A retry carrying the
	// same key replays the original result instead of crediting again.
	RequestID *uuid.UUID

	Note          string
	ActorID       *uuid.UUID
	CorrelationID string
}

// TopUpResult reports the anchor order and the appended entries
type TopUpResult struct {
	AnchorOrder  *order.Order
	StoreEntry   *ledger.Entry // nil for promotional top-ups (no cash moved)
	AccountEntry *ledger.Entry
	Credited     int64
}

// TopUpService implements the credit/fiat refill workflow
type TopUpService struct {
	db       persistence.TxRunner
	orders   order.Repository
	stores   store.Repository
	entries  ledger.Repository
	appender Appender
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewTopUpService creates a new top-up workflow service
func NewTopUpService(
	db persistence.TxRunner,
	orders order.Repository,
	stores store.Repository,
	entries ledger.Repository,
	appender Appender,
	auditRecorder AuditRecorder,
	logger *slog.Logger,
) *TopUpService {
	return &TopUpService{
		db:       db,
		orders:   orders,
		stores:   stores,
		entries:  entries,
		appender: appender,
		audit:    auditRecorder,
		logger:   logger,
	}
}

// TopUp creates the anchor order and appends the recharge entries in one
// transaction. The ledger schema requires an order reference even when no
// real purchase happened, which is why promotional refills also get an
// anchor order.
func (s *TopUpService) TopUp(ctx context.Context, params TopUpParams) (*TopUpResult, error) {
	logger := s.logger
	if params.CorrelationID != "" {
		logger = s.logger.With("correlation_id", params.CorrelationID)
	}

	if params.Stream != ledger.StreamCredit && params.Stream != ledger.StreamFiat {
		return nil, ErrValidation{Reason: "top-up stream must be credit or fiat"}
	}
	if params.CustomerID == uuid.Nil {
		return nil, ErrValidation{Reason: "top-up requires a customer"}
	}
	if params.IsPaid && params.CashAmount <= 0 {
		return nil, ErrValidation{Reason: "cash-paid top-up requires a positive cash amount"}
	}
	if !params.IsPaid && params.Amount <= 0 {
		return nil, ErrValidation{Reason: "promotional top-up requires a positive credited amount"}
	}

	st, err := s.stores.GetByID(ctx, params.StoreID)
	if err != nil {
		return nil, err
	}

	credited := params.Amount
	if credited == 0 {
		// Cash-paid without explicit amount: convert through the store's
		// exchange rate (credit) or 1:1 (fiat).
		if params.Stream == ledger.StreamCredit {
			credited = params.CashAmount / st.ExchangeRate()
		} else {
			credited = params.CashAmount
		}
	}
	if credited <= 0 {
		return nil, ErrValidation{Reason: "credited amount must be positive after conversion"}
	}

	unit := st.Currency
	if params.Stream == ledger.StreamCredit {
		unit = CreditUnit
	}

	methodCode := order.MethodPromo
	cashTotal := int64(0)
	if params.IsPaid {
		methodCode = order.MethodCash
		cashTotal = params.CashAmount
	}

	var result *TopUpResult

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ordersTx := s.orders.WithTx(tx)

		pm, err := ordersTx.FindPaymentMethodByCode(ctx, params.StoreID, methodCode)
		if err != nil {
			return err
		}
		sm, err := ordersTx.FindShippingMethodByCode(ctx, params.StoreID, order.MethodDigital)
		if err != nil {
			return err
		}

		customerID := params.CustomerID
		anchor, err := order.NewAnchor(params.StoreID, &customerID, order.KindRecharge, cashTotal, st.Currency, pm.ID, sm.ID)
		if err != nil {
			return ErrValidation{Reason: err.Error()}
		}
		anchor.RequestID = params.RequestID

		if err := ordersTx.Create(ctx, anchor); err != nil {
			return err
		}

		// Cash received is booked on the store stream. Promotional refills
		// move no cash, so no store entry is written for them.
		var storeEntry *ledger.Entry
		if params.IsPaid {
			storeEntry, err = s.appender.Append(ctx, tx, AppendParams{
				Stream:      ledger.StreamStore,
				StoreID:     params.StoreID,
				AccountKey:  params.StoreID,
				Type:        ledger.EntryTypeRecharge,
				Amount:      params.CashAmount,
				ReferenceID: &anchor.ID,
				Currency:    st.Currency,
				Note:        params.Note,
				CreatedBy:   params.ActorID,
			})
			if err != nil {
				return err
			}
		}

		accountEntry, err := s.appender.Append(ctx, tx, AppendParams{
			Stream:      params.Stream,
			StoreID:     params.StoreID,
			AccountKey:  params.CustomerID,
			Type:        ledger.EntryTypeRecharge,
			Amount:      credited,
			ReferenceID: &anchor.ID,
			Currency:    unit,
			Note:        params.Note,
			CreatedBy:   params.ActorID,
		})
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, audit.WorkflowTopUp, accountEntry, params.CorrelationID); err != nil {
			return err
		}

		result = &TopUpResult{
			AnchorOrder:  anchor,
			StoreEntry:   storeEntry,
			AccountEntry: accountEntry,
			Credited:     credited,
		}
		return nil
	})
	if err != nil {
		// A retry with the same request id: the first submission already
		// credited the account, so return its outcome.
		if params.RequestID != nil && errors.Is(err, order.ErrDuplicateRequest{}) {
			return s.replay(ctx, params, logger)
		}
		return nil, err
	}

	logger.Info("Top-up completed",
		"store_id", params.StoreID.String(),
		"customer_id", params.CustomerID.String(),
		"stream", string(params.Stream),
		"credited", credited,
		"cash", cashTotal,
		"paid", params.IsPaid,
		"anchor_order_id", result.AnchorOrder.ID.String(),
	)

	return result, nil
}

// replay reconstructs the result of the top-up a request id was first spent
// on. It runs outside the failed transaction: the duplicate insert already
// rolled it back.
func (s *TopUpService) replay(ctx context.Context, params TopUpParams, logger *slog.Logger) (*TopUpResult, error) {
	anchor, err := s.orders.FindByRequestID(ctx, params.StoreID, *params.RequestID)
	if err != nil {
		return nil, err
	}

	accountEntries, err := s.entries.FindByReference(ctx, params.Stream, anchor.ID)
	if err != nil {
		return nil, err
	}
	if len(accountEntries) == 0 {
		return nil, ErrValidation{Reason: "request id was already used by a different top-up"}
	}
	accountEntry := accountEntries[0]

	var storeEntry *ledger.Entry
	storeEntries, err := s.entries.FindByReference(ctx, ledger.StreamStore, anchor.ID)
	if err != nil {
		return nil, err
	}
	if len(storeEntries) > 0 {
		storeEntry = storeEntries[0]
	}

	logger.Info("Top-up replayed for duplicate request",
		"request_id", params.RequestID.String(),
		"anchor_order_id", anchor.ID.String(),
		"credited", accountEntry.Amount,
	)

	return &TopUpResult{
		AnchorOrder:  anchor,
		StoreEntry:   storeEntry,
		AccountEntry: accountEntry,
		Credited:     accountEntry.Amount,
	}, nil
}
