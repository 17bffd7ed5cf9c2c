package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/ledger"
)

// QueryHandler serves the read-only balance and ledger listing endpoints
type QueryHandler struct {
	balances BalanceReader
	entries  EntryLister
	logger   *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(logger *slog.Logger, balances BalanceReader, entries EntryLister) *QueryHandler {
	return &QueryHandler{
		balances: balances,
		entries:  entries,
		logger:   logger,
	}
}

// parseAccount extracts store id, customer id and stream from the request.
// The ok result is false when a response was already written.
func (h *QueryHandler) parseAccount(c *gin.Context) (storeID, customerID uuid.UUID, stream ledger.Stream, ok bool) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid store ID")
		return
	}
	customerID, err = uuid.Parse(c.Param("cid"))
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	stream = ledger.Stream(c.DefaultQuery("stream", string(ledger.StreamCredit)))
	switch stream {
	case ledger.StreamStore, ledger.StreamCredit, ledger.StreamFiat:
	default:
		RespondBadRequest(c, "Invalid stream")
		return
	}

	ok = true
	return
}

// GetBalance returns the materialized balance for one account stream.
// Accounts with no history read as zero rather than 404.
func (h *QueryHandler) GetBalance(c *gin.Context) {
	storeID, customerID, stream, ok := h.parseAccount(c)
	if !ok {
		return
	}

	b, err := h.balances.Get(c.Request.Context(), stream, storeID, customerID)
	if err != nil {
		h.logger.Error("Failed to get balance",
			"store_id", storeID.String(),
			"customer_id", customerID.String(),
			"stream", string(stream),
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBalanceToResponse(b))
}

// ListEntries returns the paginated ledger history for one account stream,
// newest first
func (h *QueryHandler) ListEntries(c *gin.Context) {
	storeID, customerID, stream, ok := h.parseAccount(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, total, err := h.entries.ListForAccount(c.Request.Context(), stream, storeID, customerID, pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list ledger entries",
			"store_id", storeID.String(),
			"customer_id", customerID.String(),
			"stream", string(stream),
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, mapEntryToResponse(e))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}
