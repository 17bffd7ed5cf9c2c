package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/api/middleware"
	"github.com/storefront-ledger/internal/domain/ledger"
	"github.com/storefront-ledger/internal/domain/order"
	"github.com/storefront-ledger/internal/domain/store"
	"github.com/storefront-ledger/internal/engine"
)

// WorkflowHandler exposes the synchronous ledger workflows: top-up, prepaid
// hold and cancellation refund
type WorkflowHandler struct {
	topUps  TopUpService
	holds   HoldService
	refunds RefundService
	logger  *slog.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(logger *slog.Logger, topUps TopUpService, holds HoldService, refunds RefundService) *WorkflowHandler {
	return &WorkflowHandler{
		topUps:  topUps,
		holds:   holds,
		refunds: refunds,
		logger:  logger,
	}
}

// TopUp refills a customer credit or fiat account
func (h *WorkflowHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid top-up request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		RespondBadRequest(c, "Invalid store ID")
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	var requestID *uuid.UUID
	if req.RequestID != "" {
		id, err := uuid.Parse(req.RequestID)
		if err != nil {
			RespondBadRequest(c, "Invalid request ID")
			return
		}
		requestID = &id
	}

	result, err := h.topUps.TopUp(c.Request.Context(), engine.TopUpParams{
		StoreID:       storeID,
		CustomerID:    customerID,
		Stream:        ledger.Stream(req.Stream),
		CashAmount:    req.CashAmount,
		Amount:        req.Amount,
		IsPaid:        req.IsPaid,
		RequestID:     requestID,
		Note:          req.Note,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondWorkflowError(c, "top-up", err)
		return
	}

	resp := TopUpResponse{
		AnchorOrder:  mapOrderToResponse(result.AnchorOrder),
		AccountEntry: mapEntryToResponse(result.AccountEntry),
		Credited:     result.Credited,
	}
	if result.StoreEntry != nil {
		storeEntry := mapEntryToResponse(result.StoreEntry)
		resp.StoreEntry = &storeEntry
	}
	RespondCreated(c, resp)
}

// Hold attempts a reservation prepayment hold against customer credit
func (h *WorkflowHandler) Hold(c *gin.Context) {
	var req HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid hold request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		RespondBadRequest(c, "Invalid store ID")
		return
	}
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		RespondBadRequest(c, "Invalid reservation ID")
		return
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			RespondBadRequest(c, "Invalid customer ID")
			return
		}
		customerID = &id
	}

	result, err := h.holds.PlaceHold(c.Request.Context(), engine.HoldParams{
		StoreID:       storeID,
		CustomerID:    customerID,
		ReservationID: reservationID,
		TotalCost:     req.TotalCost,
		Percentage:    req.Percentage,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondWorkflowError(c, "hold", err)
		return
	}

	resp := HoldResponse{
		Decision:        string(result.Decision),
		RequiredPrepaid: result.RequiredPrepaid,
		RequiredCredit:  result.RequiredCredit,
	}
	if result.AnchorOrder != nil {
		anchor := mapOrderToResponse(result.AnchorOrder)
		resp.AnchorOrder = &anchor
	}
	if result.Entry != nil {
		entry := mapEntryToResponse(result.Entry)
		resp.Entry = &entry
	}
	RespondOK(c, resp)
}

// Refund reverses the funding entry of a cancelled order. A no-refund outcome
// is still a 200: the caller's cancellation proceeds either way.
func (h *WorkflowHandler) Refund(c *gin.Context) {
	idParam := c.Param("id")
	orderID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid order ID")
		return
	}

	// The note body is optional; an empty or absent body refunds with no note
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = RefundRequest{}
	}

	result, err := h.refunds.Refund(c.Request.Context(), engine.RefundParams{
		OrderID:       orderID,
		Note:          req.Note,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondWorkflowError(c, "refund", err)
		return
	}

	resp := RefundResponse{
		Refunded: result.Refunded,
		Amount:   result.Amount,
		Stream:   string(result.Stream),
		Reason:   result.Reason,
	}
	if result.Entry != nil {
		entry := mapEntryToResponse(result.Entry)
		resp.Entry = &entry
	}
	RespondOK(c, resp)
}

// respondWorkflowError maps engine and repository errors to HTTP statuses
func (h *WorkflowHandler) respondWorkflowError(c *gin.Context, workflow string, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation{}):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, order.ErrOrderNotFound{}),
		errors.Is(err, store.ErrStoreNotFound{}),
		errors.Is(err, order.ErrMethodNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, engine.ErrWrongWorkflow{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, engine.ErrInsufficientFunds{}):
		RespondConflict(c, err.Error())
	default:
		h.logger.Error("Workflow failed", "workflow", workflow, "error", err)
		RespondInternalError(c)
	}
}
