// Package store exposes the per-store configuration the engine consults:
// subscription tier, processor credentials, credit settings and currency.
package store

import (
	"context"

	"github.com/google/uuid"
)

// Tier is the store's subscription level
type Tier string

const (
	TierFree Tier = "FREE"
	TierPaid Tier = "PAID"
)

// Store holds the configuration slice relevant to settlement and credit
type Store struct {
	ID                      uuid.UUID `json:"id"`
	Tier                    Tier      `json:"tier"`
	HasProcessorCredentials bool      `json:"has_processor_credentials"`
	CreditExchangeRate      int64     `json:"credit_exchange_rate"` // currency minor units per credit point
	UseCustomerCredit       bool      `json:"use_customer_credit"`
	Currency                string    `json:"currency"`
}

// ExchangeRate returns the cash-to-point rate, treating rates <= 0 as 1:1
func (s *Store) ExchangeRate() int64 {
	if s.CreditExchangeRate <= 0 {
		return 1
	}
	return s.CreditExchangeRate
}

// UsesPlatformProcessor reports whether orders settle through the platform's
// payment processor: free-tier stores always do, paid stores only when they
// have no credentials of their own.
func (s *Store) UsesPlatformProcessor() bool {
	return s.Tier == TierFree || !s.HasProcessorCredentials
}

// Repository provides store configuration lookups
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Store, error)
}

// ErrStoreNotFound indicates a missing store
type ErrStoreNotFound struct {
	StoreID uuid.UUID
}

func (e ErrStoreNotFound) Error() string {
	return "store not found: " + e.StoreID.String()
}

func (e ErrStoreNotFound) Is(target error) bool {
	_, ok := target.(ErrStoreNotFound)
	return ok
}
