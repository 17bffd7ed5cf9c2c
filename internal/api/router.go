// Package api hosts the HTTP surface of the ledger engine: workflow
// endpoints, read endpoints and the settlement queueing endpoint.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront-ledger/internal/api/handler"
	"github.com/storefront-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	settlementHandler *handler.SettlementHandler,
	workflowHandler *handler.WorkflowHandler,
	queryHandler *handler.QueryHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("/:id/settle", settlementHandler.Queue)
			orders.POST("/:id/refund", workflowHandler.Refund)
		}

		v1.POST("/topups", workflowHandler.TopUp)
		v1.POST("/holds", workflowHandler.Hold)

		stores := v1.Group("/stores")
		{
			stores.GET("/:id/customers/:cid/balance", queryHandler.GetBalance)
			stores.GET("/:id/customers/:cid/entries", queryHandler.ListEntries)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
