package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepository_Get(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	storeID := uuid.New()
	customerID := uuid.New()
	now := time.Now().UTC()

	query := `
		SELECT store_id, customer_id, stream, current_value, updated_at
		FROM account_balances
		WHERE store_id = \$1 AND customer_id = \$2 AND stream = \$3
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"store_id", "customer_id", "stream", "current_value", "updated_at"}).
			AddRow(storeID, customerID, ledger.StreamCredit, int64(120), now)

		mock.ExpectQuery(query).WithArgs(storeID, customerID, ledger.StreamCredit).WillReturnRows(rows)

		b, err := repo.Get(ctx, ledger.StreamCredit, storeID, customerID)
		assert.NoError(t, err)
		assert.Equal(t, &balance.Balance{StoreID: storeID, CustomerID: customerID, Stream: ledger.StreamCredit, Current: 120, UpdatedAt: now}, b)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account defaults to zero", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(storeID, customerID, ledger.StreamCredit).WillReturnError(pgx.ErrNoRows)

		b, err := repo.Get(ctx, ledger.StreamCredit, storeID, customerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), b.Current)
		assert.Equal(t, storeID, b.StoreID)
		assert.Equal(t, customerID, b.CustomerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("get db error")
		mock.ExpectQuery(query).WithArgs(storeID, customerID, ledger.StreamCredit).WillReturnError(dbErr)

		b, err := repo.Get(ctx, ledger.StreamCredit, storeID, customerID)
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.Contains(t, err.Error(), "failed to get balance")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	storeID := uuid.New()
	customerID := uuid.New()
	now := time.Now().UTC()

	ensure := `
		INSERT INTO account_balances \(store_id, customer_id, stream, current_value, updated_at\)
		VALUES \(\$1, \$2, \$3, 0, NOW\(\)\)
		ON CONFLICT \(store_id, customer_id, stream\) DO NOTHING
	`
	query := `
		SELECT store_id, customer_id, stream, current_value, updated_at
		FROM account_balances
		WHERE store_id = \$1 AND customer_id = \$2 AND stream = \$3
		FOR UPDATE
	`

	t.Run("ensures the row then locks it", func(t *testing.T) {
		mock.ExpectExec(ensure).
			WithArgs(storeID, customerID, ledger.StreamCredit).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(query).
			WithArgs(storeID, customerID, ledger.StreamCredit).
			WillReturnRows(pgxmock.NewRows([]string{"store_id", "customer_id", "stream", "current_value", "updated_at"}).
				AddRow(storeID, customerID, ledger.StreamCredit, int64(0), now))

		b, err := repo.LockForUpdate(ctx, ledger.StreamCredit, storeID, customerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), b.Current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ensure failure", func(t *testing.T) {
		dbErr := errors.New("insert db error")
		mock.ExpectExec(ensure).
			WithArgs(storeID, customerID, ledger.StreamCredit).
			WillReturnError(dbErr)

		b, err := repo.LockForUpdate(ctx, ledger.StreamCredit, storeID, customerID)
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.Contains(t, err.Error(), "failed to ensure balance row")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock failure", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectExec(ensure).
			WithArgs(storeID, customerID, ledger.StreamCredit).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(query).
			WithArgs(storeID, customerID, ledger.StreamCredit).
			WillReturnError(dbErr)

		b, err := repo.LockForUpdate(ctx, ledger.StreamCredit, storeID, customerID)
		assert.Error(t, err)
		assert.Nil(t, b)
		assert.Contains(t, err.Error(), "failed to lock balance row")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_Set(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	storeID := uuid.New()
	customerID := uuid.New()

	query := `
		INSERT INTO account_balances \(store_id, customer_id, stream, current_value, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5\)
		ON CONFLICT \(store_id, customer_id, stream\)
		DO UPDATE SET current_value = EXCLUDED.current_value, updated_at = EXCLUDED.updated_at
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(storeID, customerID, ledger.StreamCredit, int64(110), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Set(ctx, ledger.StreamCredit, storeID, customerID, 110)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("set db error")
		mock.ExpectExec(query).
			WithArgs(storeID, customerID, ledger.StreamCredit, int64(110), pgxmock.AnyArg()).
			WillReturnError(dbErr)

		err := repo.Set(ctx, ledger.StreamCredit, storeID, customerID, 110)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set balance")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
