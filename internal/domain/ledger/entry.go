// Package ledger defines the append-only ledger streams that record every
// money and credit movement in the platform: store revenue, customer credit
// points and customer fiat prepayments. Entries are immutable once written;
// corrections are made by appending offsetting entries.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Stream identifies one append-only accounting sequence
type Stream string

const (
	// StreamStore records store-side revenue (settled orders, cash received
	// for top-ups)
	StreamStore Stream = "STORE"
	// StreamCredit records customer credit points
	StreamCredit Stream = "CREDIT"
	// StreamFiat records customer fiat prepayment balances
	StreamFiat Stream = "FIAT"
)

// EntryType enumerates the movements a stream may record
type EntryType string

const (
	// EntryTypeSale is a settled order on the store stream
	EntryTypeSale EntryType = "SALE"
	// EntryTypeRecharge is a top-up on any stream
	EntryTypeRecharge EntryType = "RECHARGE"
	// EntryTypeSpend recognizes customer funds as consumed
	EntryTypeSpend EntryType = "SPEND"
	// EntryTypeHold removes customer credit from available balance for a
	// not-yet-completed transaction; reversible by exactly one refund
	EntryTypeHold EntryType = "HOLD"
	// EntryTypeRefund reverses a hold or spend
	EntryTypeRefund EntryType = "REFUND"
)

// validTypes lists the entry types each stream accepts
var validTypes = map[Stream]map[EntryType]bool{
	StreamStore: {
		EntryTypeSale:     true,
		EntryTypeRecharge: true,
	},
	StreamCredit: {
		EntryTypeRecharge: true,
		EntryTypeSpend:    true,
		EntryTypeHold:     true,
		EntryTypeRefund:   true,
	},
	StreamFiat: {
		EntryTypeRecharge: true,
		EntryTypeSpend:    true,
		EntryTypeRefund:   true,
	},
}

// Valid reports whether t is an accepted entry type for stream s
func (s Stream) Valid(t EntryType) bool {
	return validTypes[s][t]
}

// Entry is one immutable row in a ledger stream. All three streams share this
// shape; Fee, PlatformFee and AvailableAt are populated only on the store
// stream. Amounts are signed integer minor units (or credit points on the
// credit stream); negative means a debit from the account's perspective.
type Entry struct {
	ID           uuid.UUID  `json:"id"`
	Stream       Stream     `json:"stream"`
	StoreID      uuid.UUID  `json:"store_id"`
	AccountKey   uuid.UUID  `json:"account_key"` // customer id for credit/fiat, store id for the store stream
	Type         EntryType  `json:"type"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	ReferenceID  *uuid.UUID `json:"reference_id,omitempty"` // anchoring order id, nil only for pure top-ups
	Currency     string     `json:"currency"`
	Note         string     `json:"note,omitempty"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty"` // nil = system
	CreatedAt    time.Time  `json:"created_at"`

	// Store stream only
	Fee         int64      `json:"fee,omitempty"`          // payment-processor fee, signed (deduction is negative)
	PlatformFee int64      `json:"platform_fee,omitempty"` // platform commission, signed
	AvailableAt *time.Time `json:"available_at,omitempty"` // when settled funds become clearable
}

// IsDebit reports whether the entry removes funds from the account
func (e *Entry) IsDebit() bool {
	return e.Amount < 0
}

// FundsOrder reports whether the entry represents customer funds committed to
// an order (the kinds a refund can reverse)
func (e *Entry) FundsOrder() bool {
	return e.Type == EntryTypeSpend || e.Type == EntryTypeHold
}
