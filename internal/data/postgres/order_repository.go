package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/platform/persistence"
)

// OrderRepository implements order.Repository for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const orderColumns = `id, store_id, customer_id, kind, total, currency, is_paid, paid_at, status, payment_status, payment_method_id, shipping_method_id, payment_cost, request_id, created_at, updated_at`

// Create stores a new order (the engine only creates synthetic anchors).
// A request-id collision maps to order.ErrDuplicateRequest so the top-up
// workflow can replay the original result.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		o.ID,
		o.StoreID,
		o.CustomerID,
		o.Kind,
		o.Total,
		o.Currency,
		o.IsPaid,
		o.PaidAt,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethodID,
		o.ShippingMethodID,
		o.PaymentCost,
		o.RequestID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && o.RequestID != nil {
			return order.ErrDuplicateRequest{RequestID: *o.RequestID}
		}
		r.logger.Error("Failed to create order", "order_id", o.ID.String(), "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// FindByRequestID returns the anchor order created for a client request id
func (r *OrderRepository) FindByRequestID(ctx context.Context, storeID, requestID uuid.UUID) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE store_id = $1 AND request_id = $2
	`

	return r.scanOrder(r.querier.QueryRow(ctx, query, storeID, requestID), requestID)
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	return r.scanOrder(r.querier.QueryRow(ctx, query, id), id)
}

// LockForUpdate obtains a row lock on the order so settlement's idempotency
// checks and the paid-state write happen under one lock
func (r *OrderRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanOrder(r.querier.QueryRow(ctx, query, id), id)
}

// Update persists the payment-side fields of the order
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	query := `
		UPDATE orders
		SET is_paid = $1, paid_at = $2, status = $3, payment_status = $4, payment_cost = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		o.IsPaid,
		o.PaidAt,
		o.Status,
		o.PaymentStatus,
		o.PaymentCost,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update order", "order_id", o.ID.String(), "error", err)
		return fmt.Errorf("failed to update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrOrderNotFound{OrderID: o.ID}
	}

	return nil
}

// GetPaymentMethod retrieves a payment method by id
func (r *OrderRepository) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*order.PaymentMethod, error) {
	query := `
		SELECT id, store_id, code, name, fee_rate_bps, fee_additional, clear_days
		FROM payment_methods
		WHERE id = $1
	`

	var m order.PaymentMethod
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.StoreID,
		&m.Code,
		&m.Name,
		&m.FeeRateBps,
		&m.FeeAdditional,
		&m.ClearDays,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrMethodNotFound{Code: id.String()}
		}
		r.logger.Error("Failed to get payment method", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return &m, nil
}

// FindPaymentMethodByCode looks up a store's payment method by its
// well-known code ("cash", "promo", "credit", ...)
func (r *OrderRepository) FindPaymentMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*order.PaymentMethod, error) {
	query := `
		SELECT id, store_id, code, name, fee_rate_bps, fee_additional, clear_days
		FROM payment_methods
		WHERE store_id = $1 AND code = $2
	`

	var m order.PaymentMethod
	err := r.querier.QueryRow(ctx, query, storeID, code).Scan(
		&m.ID,
		&m.StoreID,
		&m.Code,
		&m.Name,
		&m.FeeRateBps,
		&m.FeeAdditional,
		&m.ClearDays,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrMethodNotFound{StoreID: storeID, Code: code}
		}
		r.logger.Error("Failed to find payment method", "store_id", storeID.String(), "code", code, "error", err)
		return nil, fmt.Errorf("failed to find payment method: %w", err)
	}

	return &m, nil
}

// FindShippingMethodByCode looks up a store's shipping method by code
func (r *OrderRepository) FindShippingMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*order.ShippingMethod, error) {
	query := `
		SELECT id, store_id, code, name
		FROM shipping_methods
		WHERE store_id = $1 AND code = $2
	`

	var m order.ShippingMethod
	err := r.querier.QueryRow(ctx, query, storeID, code).Scan(
		&m.ID,
		&m.StoreID,
		&m.Code,
		&m.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrMethodNotFound{StoreID: storeID, Code: code}
		}
		r.logger.Error("Failed to find shipping method", "store_id", storeID.String(), "code", code, "error", err)
		return nil, fmt.Errorf("failed to find shipping method: %w", err)
	}

	return &m, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID,
		&o.StoreID,
		&o.CustomerID,
		&o.Kind,
		&o.Total,
		&o.Currency,
		&o.IsPaid,
		&o.PaidAt,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethodID,
		&o.ShippingMethodID,
		&o.PaymentCost,
		&o.RequestID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderID: id}
		}
		r.logger.Error("Failed to get order", "order_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}
