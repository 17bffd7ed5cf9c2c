// Package order models the order records the ledger engine anchors entries
// to. Order and catalog management proper belong to the storefront service;
// the engine owns only the payment-side fields and the synthetic anchor
// orders it creates for top-ups and prepaid holds.
package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes real purchases from the synthetic orders the engine
// creates as ledger anchors
type Kind string

const (
	KindStandard Kind = "STANDARD"
	// KindRecharge marks a credit/fiat top-up anchor. Settlement refuses
	// these: the top-up workflow already books them.
	KindRecharge Kind = "RECHARGE"
	// KindPrepaid marks a reservation prepayment anchor
	KindPrepaid Kind = "PREPAID"
)

// Status is the order lifecycle state
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
)

// PaymentStatus is the payment-side state
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

var (
	ErrInvalidTotal = errors.New("order total must not be negative")
	ErrNoStore      = errors.New("order requires a store id")
)

// Order is the anchor and idempotency unit for settlement
type Order struct {
	ID               uuid.UUID     `json:"id"`
	StoreID          uuid.UUID     `json:"store_id"`
	CustomerID       *uuid.UUID    `json:"customer_id,omitempty"` // nil for anonymous orders
	Kind             Kind          `json:"kind"`
	Total            int64         `json:"total"` // minor units
	Currency         string        `json:"currency"`
	IsPaid           bool          `json:"is_paid"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	Status           Status        `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentMethodID  uuid.UUID     `json:"payment_method_id"`
	ShippingMethodID uuid.UUID     `json:"shipping_method_id"`
	PaymentCost      int64         `json:"payment_cost"` // total of fees charged at settlement, signed
	// RequestID is the client idempotency key on recharge anchors; unique per
	// store when set.
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PaymentMethod carries the fee schedule used at settlement. FeeRateBps is
// the processor rate in basis points (300 = 3%).
type PaymentMethod struct {
	ID            uuid.UUID `json:"id"`
	StoreID       uuid.UUID `json:"store_id"`
	Code          string    `json:"code"` // "cash", "promo", "credit", "card", ...
	Name          string    `json:"name"`
	FeeRateBps    int64     `json:"fee_rate_bps"`
	FeeAdditional int64     `json:"fee_additional"` // flat fee in minor units
	ClearDays     int       `json:"clear_days"`     // days until settled funds clear
}

// ShippingMethod is a structural placeholder on anchor orders
type ShippingMethod struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"store_id"`
	Code    string    `json:"code"` // "digital", ...
	Name    string    `json:"name"`
}

// Well-known method codes the engine looks up
const (
	MethodCash    = "cash"
	MethodPromo   = "promo"
	MethodCredit  = "credit"
	MethodDigital = "digital"
)

// NewAnchor creates a synthetic, already-paid order used purely as the
// reference id for a ledger entry.
func NewAnchor(storeID uuid.UUID, customerID *uuid.UUID, kind Kind, total int64, currency string, paymentMethodID, shippingMethodID uuid.UUID) (*Order, error) {
	if storeID == uuid.Nil {
		return nil, ErrNoStore
	}
	if total < 0 {
		return nil, ErrInvalidTotal
	}

	now := time.Now().UTC()
	return &Order{
		ID:               uuid.New(),
		StoreID:          storeID,
		CustomerID:       customerID,
		Kind:             kind,
		Total:            total,
		Currency:         currency,
		IsPaid:           true,
		PaidAt:           &now,
		Status:           StatusConfirmed,
		PaymentStatus:    PaymentStatusPaid,
		PaymentMethodID:  paymentMethodID,
		ShippingMethodID: shippingMethodID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// MarkPaid performs the Unpaid -> Paid settlement transition in memory.
// paymentCost is the combined fee burden (fee + fee tax + platform fee).
func (o *Order) MarkPaid(now time.Time, paymentCost int64) {
	o.IsPaid = true
	o.PaidAt = &now
	o.Status = StatusProcessing
	o.PaymentStatus = PaymentStatusPaid
	o.PaymentCost = paymentCost
	o.UpdatedAt = now
}
