// Package balance holds the materialized running balance per
// (store, customer, stream). The ledger is the source of truth; these rows
// are caches written in the same transaction as their driving ledger entry,
// and double as the per-account serialization point for appends.
package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// Balance is the materialized current value of one account stream
type Balance struct {
	StoreID    uuid.UUID     `json:"store_id"`
	CustomerID uuid.UUID     `json:"customer_id"` // store id itself for the store stream
	Stream     ledger.Stream `json:"stream"`
	Current    int64         `json:"current"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Covers reports whether the balance can fund a debit of the given magnitude
func (b *Balance) Covers(amount int64) bool {
	return b.Current >= amount
}
