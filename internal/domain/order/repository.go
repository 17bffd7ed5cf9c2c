package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines order persistence operations used by the engine
type Repository interface {
	// Create stores a new order. A request-id collision on a recharge anchor
	// surfaces as ErrDuplicateRequest.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByRequestID returns the anchor order a client request id was
	// already spent on.
	FindByRequestID(ctx context.Context, storeID, requestID uuid.UUID) (*Order, error)

	// LockForUpdate acquires a row lock on the order. Settlement evaluates
	// its idempotency checks under this lock so two concurrent callers
	// cannot both pass them.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// Update persists payment-side field changes (MarkPaid)
	Update(ctx context.Context, o *Order) error

	GetPaymentMethod(ctx context.Context, id uuid.UUID) (*PaymentMethod, error)
	FindPaymentMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*PaymentMethod, error)
	FindShippingMethodByCode(ctx context.Context, storeID uuid.UUID, code string) (*ShippingMethod, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrOrderNotFound indicates a missing order
type ErrOrderNotFound struct {
	OrderID uuid.UUID
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + e.OrderID.String()
}

func (e ErrOrderNotFound) Is(target error) bool {
	_, ok := target.(ErrOrderNotFound)
	return ok
}

// ErrDuplicateRequest indicates a client request id was already used for an
// anchor order. Callers replay the original outcome instead of re-crediting.
type ErrDuplicateRequest struct {
	RequestID uuid.UUID
}

func (e ErrDuplicateRequest) Error() string {
	return "an order already exists for request " + e.RequestID.String()
}

func (e ErrDuplicateRequest) Is(target error) bool {
	_, ok := target.(ErrDuplicateRequest)
	return ok
}

// ErrMethodNotFound indicates a missing payment or shipping method
type ErrMethodNotFound struct {
	StoreID uuid.UUID
	Code    string
}

func (e ErrMethodNotFound) Error() string {
	return "method not found for store " + e.StoreID.String() + ": " + e.Code
}

func (e ErrMethodNotFound) Is(target error) bool {
	_, ok := target.(ErrMethodNotFound)
	return ok
}
