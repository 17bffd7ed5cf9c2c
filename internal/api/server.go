package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront-ledger/internal/api/handler"
	"github.com/storefront-ledger/internal/config"
)

// Server handles HTTP requests and manages the listener lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	queuer handler.SettlementQueuer,
	topUps handler.TopUpService,
	holds handler.HoldService,
	refunds handler.RefundService,
	balances handler.BalanceReader,
	entries handler.EntryLister,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	settlementHandler := handler.NewSettlementHandler(log, queuer)
	workflowHandler := handler.NewWorkflowHandler(log, topUps, holds, refunds)
	queryHandler := handler.NewQueryHandler(log, balances, entries)

	setupRouter(log, httpRouter, settlementHandler, workflowHandler, queryHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
