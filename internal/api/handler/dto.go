package handler

import (
	"time"

	"github.com/storefront-ledger/internal/domain/balance"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
)

// TopUpRequest represents a request to refill a customer account stream.
// RequestID is an optional idempotency key: a retried submission carrying the
// same key returns the original result instead of crediting twice.
type TopUpRequest struct {
	StoreID    string `json:"store_id" binding:"required,uuid"`
	CustomerID string `json:"customer_id" binding:"required,uuid"`
	Stream     string `json:"stream" binding:"required,oneof=CREDIT FIAT"`
	CashAmount int64  `json:"cash_amount" binding:"min=0"`
	Amount     int64  `json:"amount" binding:"min=0"`
	IsPaid     bool   `json:"is_paid"`
	RequestID  string `json:"request_id,omitempty" binding:"omitempty,uuid"`
	Note       string `json:"note,omitempty"`
}

// HoldRequest represents a request to place a reservation prepayment hold
type HoldRequest struct {
	StoreID       string `json:"store_id" binding:"required,uuid"`
	CustomerID    string `json:"customer_id,omitempty" binding:"omitempty,uuid"`
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	TotalCost     int64  `json:"total_cost" binding:"min=0"`
	Percentage    int64  `json:"percentage" binding:"min=0,max=100"`
}

// RefundRequest carries the optional note for a cancellation refund
type RefundRequest struct {
	Note string `json:"note,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID           string `json:"id"`
	Stream       string `json:"stream"`
	StoreID      string `json:"store_id"`
	AccountKey   string `json:"account_key"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	ReferenceID  string `json:"reference_id,omitempty"`
	Currency     string `json:"currency"`
	Note         string `json:"note,omitempty"`
	Fee          int64  `json:"fee,omitempty"`
	PlatformFee  int64  `json:"platform_fee,omitempty"`
	AvailableAt  string `json:"available_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            string `json:"id"`
	StoreID       string `json:"store_id"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Total         int64  `json:"total"`
	Currency      string `json:"currency"`
	IsPaid        bool   `json:"is_paid"`
	PaidAt        string `json:"paid_at,omitempty"`
}

// TopUpResponse represents the outcome of a top-up
type TopUpResponse struct {
	AnchorOrder  OrderResponse  `json:"anchor_order"`
	StoreEntry   *EntryResponse `json:"store_entry,omitempty"`
	AccountEntry EntryResponse  `json:"account_entry"`
	Credited     int64          `json:"credited"`
}

// HoldResponse represents the outcome of a prepaid-hold attempt
type HoldResponse struct {
	Decision        string         `json:"decision"`
	RequiredPrepaid int64          `json:"required_prepaid"`
	RequiredCredit  int64          `json:"required_credit"`
	AnchorOrder     *OrderResponse `json:"anchor_order,omitempty"`
	Entry           *EntryResponse `json:"entry,omitempty"`
}

// RefundResponse represents the outcome of a refund attempt
type RefundResponse struct {
	Refunded bool           `json:"refunded"`
	Amount   int64          `json:"amount,omitempty"`
	Stream   string         `json:"stream,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Entry    *EntryResponse `json:"entry,omitempty"`
}

// BalanceResponse represents a materialized account balance
type BalanceResponse struct {
	StoreID    string `json:"store_id"`
	CustomerID string `json:"customer_id"`
	Stream     string `json:"stream"`
	Current    int64  `json:"current"`
	UpdatedAt  string `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:           e.ID.String(),
		Stream:       string(e.Stream),
		StoreID:      e.StoreID.String(),
		AccountKey:   e.AccountKey.String(),
		Type:         string(e.Type),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Currency:     e.Currency,
		Note:         e.Note,
		Fee:          e.Fee,
		PlatformFee:  e.PlatformFee,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.ReferenceID != nil {
		resp.ReferenceID = e.ReferenceID.String()
	}
	if e.AvailableAt != nil {
		resp.AvailableAt = e.AvailableAt.Format(time.RFC3339)
	}
	return resp
}

func mapOrderToResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID.String(),
		StoreID:       o.StoreID.String(),
		Kind:          string(o.Kind),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
		Currency:      o.Currency,
		IsPaid:        o.IsPaid,
	}
	if o.PaidAt != nil {
		resp.PaidAt = o.PaidAt.Format(time.RFC3339)
	}
	return resp
}

func mapBalanceToResponse(b *balance.Balance) BalanceResponse {
	return BalanceResponse{
		StoreID:    b.StoreID.String(),
		CustomerID: b.CustomerID.String(),
		Stream:     string(b.Stream),
		Current:    b.Current,
		UpdatedAt:  b.UpdatedAt.Format(time.RFC3339),
	}
}
