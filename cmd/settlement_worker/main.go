package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/data/mongo"
	"github.com/storefront-ledger/internal/data/postgres"
	"github.com/storefront-ledger/internal/engine"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/consumers"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
	"github.com/storefront-ledger/internal/platform/persistence"
	"github.com/storefront-ledger/internal/worker"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	balanceRepo := postgres.NewBalanceRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	storeRepo := postgres.NewStoreRepository(log, postgresDB)
	outboxRepo := postgres.NewAuditOutboxRepository(log, postgresDB)
	auditSink := mongo.NewAuditSink(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	// Initialize Kafka DLQ producer; nil when no DLQ topic is configured, the
	// handler tolerates that
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the settlement service behind the worker pool
	appender := engine.NewLedgerAppender(ledgerRepo, balanceRepo, log)
	auditRecorder := engine.NewOutboxAuditRecorder(outboxRepo, log)
	settlementService := engine.NewSettlementService(postgresDB, orderRepo, storeRepo, appender, auditRecorder, log)

	settlementPool, err := worker.NewSettlementPool(settlementService, cfg.WorkerPool, log)
	if err != nil {
		log.Error("Failed to initialize settlement worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize settlement event handler
	var dlq worker.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}
	eventHandler := worker.NewSettlementEventHandler(log, settlementPool, dlq)

	// Initialize audit outbox poller
	auditPublisher := worker.NewAuditPublisher(outboxRepo, auditSink, log)
	poller := worker.NewOutboxPoller(&cfg.Outbox, outboxRepo, auditPublisher, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Drain the worker pool before closing connections
	settlementPool.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Settlement Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Settlement Worker shutdown completed with errors")
	} else {
		log.Info("Settlement Worker shutdown completed successfully")
	}
}
