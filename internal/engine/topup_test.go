package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTopUpFixture() (*TopUpService, *MockOrderRepository, *MockStoreRepository, *MockLedgerRepository, *MockAppender, *MockAuditRecorder, *MockTx) {
	mockOrders := &MockOrderRepository{}
	mockStores := &MockStoreRepository{}
	mockEntries := &MockLedgerRepository{}
	mockAppender := &MockAppender{}
	mockAudit := &MockAuditRecorder{}
	mockTx := &MockTx{}

	svc := NewTopUpService(&mockTxRunner{tx: mockTx}, mockOrders, mockStores, mockEntries, mockAppender, mockAudit, slog.Default())
	return svc, mockOrders, mockStores, mockEntries, mockAppender, mockAudit, mockTx
}

func TestTopUpService_TopUp(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	customerID := uuid.New()

	st := &store.Store{ID: storeID, Tier: store.TierPaid, CreditExchangeRate: 10, Currency: "USD"}
	cashPM := &order.PaymentMethod{ID: uuid.New(), StoreID: storeID, Code: order.MethodCash}
	promoPM := &order.PaymentMethod{ID: uuid.New(), StoreID: storeID, Code: order.MethodPromo}
	digitalSM := &order.ShippingMethod{ID: uuid.New(), StoreID: storeID, Code: order.MethodDigital}

	t.Run("cash-paid credit top-up converts through the exchange rate", func(t *testing.T) {
		svc, mockOrders, mockStores, _, mockAppender, mockAudit, mockTx := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodCash).Return(cashPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		mockOrders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Kind == order.KindRecharge && o.Total == 500 && o.IsPaid
		})).Return(nil).Once()

		// cash leg on the store stream
		storeEntry := &ledger.Entry{ID: uuid.New(), Stream: ledger.StreamStore, Amount: 500}
		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamStore &&
				p.Type == ledger.EntryTypeRecharge &&
				p.Amount == 500 &&
				p.AccountKey == storeID &&
				p.Currency == "USD"
		})).Return(storeEntry, nil).Once()

		// 500 minor units at 10 per point credits 50 points
		accountEntry := &ledger.Entry{ID: uuid.New(), Stream: ledger.StreamCredit, Amount: 50}
		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamCredit &&
				p.Type == ledger.EntryTypeRecharge &&
				p.Amount == 50 &&
				p.AccountKey == customerID &&
				p.Currency == CreditUnit
		})).Return(accountEntry, nil).Once()

		mockAudit.On("Record", mock.Anything, mockTx, audit.WorkflowTopUp, accountEntry, "").Return(nil).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			CashAmount: 500,
			IsPaid:     true,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(50), result.Credited)
		assert.NotNil(t, result.StoreEntry)
		assert.NotNil(t, result.AccountEntry)
		mockOrders.AssertExpectations(t)
		mockAppender.AssertExpectations(t)
		mockAudit.AssertExpectations(t)
	})

	t.Run("explicit amount overrides the conversion", func(t *testing.T) {
		svc, mockOrders, mockStores, _, mockAppender, mockAudit, mockTx := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodCash).Return(cashPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		mockOrders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamStore && p.Amount == 500
		})).Return(&ledger.Entry{}, nil).Once()
		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamCredit && p.Amount == 60
		})).Return(&ledger.Entry{}, nil).Once()
		mockAudit.On("Record", mock.Anything, mockTx, audit.WorkflowTopUp, mock.Anything, "").Return(nil).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			CashAmount: 500,
			Amount:     60, // bonus points on top of the straight conversion
			IsPaid:     true,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(60), result.Credited)
		mockAppender.AssertExpectations(t)
	})

	t.Run("promotional top-up writes no store entry", func(t *testing.T) {
		svc, mockOrders, mockStores, _, mockAppender, mockAudit, mockTx := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodPromo).Return(promoPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		mockOrders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Kind == order.KindRecharge && o.Total == 0
		})).Return(nil).Once()

		accountEntry := &ledger.Entry{ID: uuid.New(), Stream: ledger.StreamCredit, Amount: 100}
		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamCredit && p.Amount == 100
		})).Return(accountEntry, nil).Once()
		mockAudit.On("Record", mock.Anything, mockTx, audit.WorkflowTopUp, accountEntry, "").Return(nil).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			Amount:     100,
			IsPaid:     false,
			Note:       "welcome bonus",
		})

		assert.NoError(t, err)
		assert.Nil(t, result.StoreEntry)
		assert.Equal(t, int64(100), result.Credited)
		mockAppender.AssertNumberOfCalls(t, "Append", 1)
	})

	t.Run("fiat top-up credits cash one to one", func(t *testing.T) {
		svc, mockOrders, mockStores, _, mockAppender, mockAudit, mockTx := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodCash).Return(cashPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		mockOrders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamStore && p.Amount == 2500
		})).Return(&ledger.Entry{}, nil).Once()
		mockAppender.On("Append", mock.Anything, mockTx, mock.MatchedBy(func(p AppendParams) bool {
			return p.Stream == ledger.StreamFiat && p.Amount == 2500 && p.Currency == "USD"
		})).Return(&ledger.Entry{}, nil).Once()
		mockAudit.On("Record", mock.Anything, mockTx, audit.WorkflowTopUp, mock.Anything, "").Return(nil).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamFiat,
			CashAmount: 2500,
			IsPaid:     true,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(2500), result.Credited)
		mockAppender.AssertExpectations(t)
	})

	t.Run("duplicate request id replays the original result", func(t *testing.T) {
		svc, mockOrders, mockStores, mockEntries, mockAppender, mockAudit, _ := newTopUpFixture()

		requestID := uuid.New()
		prior, _ := order.NewAnchor(storeID, &customerID, order.KindRecharge, 0, "USD", promoPM.ID, digitalSM.ID)
		prior.RequestID = &requestID
		priorEntry := &ledger.Entry{ID: uuid.New(), Stream: ledger.StreamCredit, Amount: 50, ReferenceID: &prior.ID}

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodPromo).Return(promoPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		mockOrders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.RequestID != nil && *o.RequestID == requestID
		})).Return(order.ErrDuplicateRequest{RequestID: requestID}).Once()

		mockOrders.On("FindByRequestID", mock.Anything, storeID, requestID).Return(prior, nil).Once()
		mockEntries.On("FindByReference", mock.Anything, ledger.StreamCredit, prior.ID).
			Return([]*ledger.Entry{priorEntry}, nil).Once()
		mockEntries.On("FindByReference", mock.Anything, ledger.StreamStore, prior.ID).
			Return([]*ledger.Entry{}, nil).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			Amount:     50,
			RequestID:  &requestID,
		})

		assert.NoError(t, err)
		assert.Equal(t, prior.ID, result.AnchorOrder.ID)
		assert.Equal(t, int64(50), result.Credited)
		assert.Nil(t, result.StoreEntry)

		// no second credit is booked for the retry
		mockAppender.AssertNotCalled(t, "Append")
		mockAudit.AssertNotCalled(t, "Record")
		mockOrders.AssertExpectations(t)
		mockEntries.AssertExpectations(t)
	})

	t.Run("duplicate request without a request id is a hard failure", func(t *testing.T) {
		svc, mockOrders, mockStores, _, _, _, _ := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()
		mockOrders.On("FindPaymentMethodByCode", mock.Anything, storeID, order.MethodPromo).Return(promoPM, nil).Once()
		mockOrders.On("FindShippingMethodByCode", mock.Anything, storeID, order.MethodDigital).Return(digitalSM, nil).Once()
		createErr := errors.New("failed to create order")
		mockOrders.On("Create", mock.Anything, mock.Anything).Return(createErr).Once()

		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			Amount:     50,
		})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, createErr)
		mockOrders.AssertNotCalled(t, "FindByRequestID")
	})

	t.Run("validation failures", func(t *testing.T) {
		svc, _, mockStores, _, _, _, _ := newTopUpFixture()

		cases := []struct {
			name   string
			params TopUpParams
		}{
			{"store stream is not a top-up target", TopUpParams{StoreID: storeID, CustomerID: customerID, Stream: ledger.StreamStore, Amount: 10}},
			{"missing customer", TopUpParams{StoreID: storeID, Stream: ledger.StreamCredit, Amount: 10}},
			{"cash-paid without cash amount", TopUpParams{StoreID: storeID, CustomerID: customerID, Stream: ledger.StreamCredit, IsPaid: true}},
			{"promotional without amount", TopUpParams{StoreID: storeID, CustomerID: customerID, Stream: ledger.StreamCredit, IsPaid: false}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				result, err := svc.TopUp(ctx, tc.params)
				assert.Nil(t, result)
				assert.ErrorIs(t, err, ErrValidation{})
			})
		}
		mockStores.AssertNotCalled(t, "GetByID")
	})

	t.Run("cash below one point is rejected", func(t *testing.T) {
		svc, _, mockStores, _, mockAppender, _, _ := newTopUpFixture()

		mockStores.On("GetByID", mock.Anything, storeID).Return(st, nil).Once()

		// 7 minor units at 10 per point truncates to zero credit
		result, err := svc.TopUp(ctx, TopUpParams{
			StoreID:    storeID,
			CustomerID: customerID,
			Stream:     ledger.StreamCredit,
			CashAmount: 7,
			IsPaid:     true,
		})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrValidation{})
		mockAppender.AssertNotCalled(t, "Append")
	})
}
