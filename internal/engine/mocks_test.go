package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/stretchr/testify/mock"
)

// mockTxRunner executes the closure directly with the given tx, standing in
// for PostgresDB.ExecuteTx
type mockTxRunner struct {
	tx pgx.Tx
}

func (r *mockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(r.tx)
}

// MockTx implements the pgx.Tx interface for testing
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Conn() *pgx.Conn {
	return nil
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByRequestID(ctx context.Context, storeID, requestID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, storeID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*order.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PaymentMethod), args.Error(1)
}

func (m *MockOrderRepository) FindPaymentMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*order.PaymentMethod, error) {
	args := m.Called(ctx, storeID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PaymentMethod), args.Error(1)
}

func (m *MockOrderRepository) FindShippingMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*order.ShippingMethod, error) {
	args := m.Called(ctx, storeID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ShippingMethod), args.Error(1)
}

func (m *MockOrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return m
}

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Insert(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByReference(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, stream, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) FindFunding(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, stream, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) HasRefund(ctx context.Context, stream ledger.Stream, referenceID uuid.UUID) (bool, error) {
	args := m.Called(ctx, stream, referenceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListForAccount(ctx context.Context, stream ledger.Stream, storeID, accountKey uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, stream, storeID, accountKey, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Get(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error) {
	args := m.Called(ctx, stream, storeID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepository) LockForUpdate(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID) (*balance.Balance, error) {
	args := m.Called(ctx, stream, storeID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Set(ctx context.Context, stream ledger.Stream, storeID, customerID uuid.UUID, value int64) error {
	args := m.Called(ctx, stream, storeID, customerID, value)
	return args.Error(0)
}

func (m *MockBalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return m
}

type MockAppender struct {
	mock.Mock
}

func (m *MockAppender) Append(ctx context.Context, tx pgx.Tx, params AppendParams) (*ledger.Entry, error) {
	args := m.Called(ctx, tx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, tx pgx.Tx, workflow audit.Workflow, entry *ledger.Entry, correlationID string) error {
	args := m.Called(ctx, tx, workflow, entry, correlationID)
	return args.Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, message *audit.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockAuditRepository) GetPending(ctx context.Context, limit int) ([]*audit.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Message), args.Error(1)
}

func (m *MockAuditRepository) UpdateStatus(ctx context.Context, id int64, status audit.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAuditRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return m
}
