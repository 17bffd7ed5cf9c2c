package engine

import (
	"github.com/google/uuid"
)

// ErrWrongWorkflow signals that settlement was invoked on a recharge anchor
// order. Those orders are booked entirely by the top-up workflow; settling
// them here would double-process the movement.
type ErrWrongWorkflow struct {
	OrderID uuid.UUID
}

func (e ErrWrongWorkflow) Error() string {
	return "order " + e.OrderID.String() + " is a recharge order and must be processed by the top-up workflow"
}

func (e ErrWrongWorkflow) Is(target error) bool {
	_, ok := target.(ErrWrongWorkflow)
	return ok
}

// ErrValidation rejects malformed workflow input
type ErrValidation struct {
	Reason string
}

func (e ErrValidation) Error() string {
	return "validation failed: " + e.Reason
}

func (e ErrValidation) Is(target error) bool {
	_, ok := target.(ErrValidation)
	return ok
}

// ErrInsufficientFunds indicates a customer stream cannot fund a debit
type ErrInsufficientFunds struct {
	StoreID    uuid.UUID
	CustomerID uuid.UUID
	Required   int64
	Available  int64
}

func (e ErrInsufficientFunds) Error() string {
	return "insufficient funds for customer " + e.CustomerID.String()
}

func (e ErrInsufficientFunds) Is(target error) bool {
	_, ok := target.(ErrInsufficientFunds)
	return ok
}
