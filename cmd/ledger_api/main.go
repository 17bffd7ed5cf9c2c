package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront-ledger/internal/api"
	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/data/postgres"
	"github.com/storefront-ledger/internal/engine"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
	"github.com/storefront-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for settlement requests
	settlementProducer, err := producers.NewSettlementRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	storeRepo := postgres.NewStoreRepository(log, postgresDB)
	outboxRepo := postgres.NewAuditOutboxRepository(log, postgresDB)

	// Initialize the ledger engine
	appender := engine.NewLedgerAppender(ledgerRepo, balanceRepo, log)
	auditRecorder := engine.NewOutboxAuditRecorder(outboxRepo, log)
	topUpService := engine.NewTopUpService(postgresDB, orderRepo, storeRepo, ledgerRepo, appender, auditRecorder, log)
	holdService := engine.NewHoldService(postgresDB, orderRepo, storeRepo, balanceRepo, appender, auditRecorder, log)
	refundService := engine.NewRefundService(postgresDB, orderRepo, ledgerRepo, appender, auditRecorder, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, settlementProducer, topUpService, holdService, refundService, balanceRepo, ledgerRepo)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = settlementProducer.Close(); err != nil {
		log.Error("Error closing settlement Kafka producer", "error", err)
	}

	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
