package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/al3-renewal-pipeline/internal/api_gateway"
	"github.com/al3-renewal-pipeline/internal/api_gateway/dispatcher"
	"github.com/al3-renewal-pipeline/internal/api_gateway/service"
	"github.com/al3-renewal-pipeline/internal/config"
	"github.com/al3-renewal-pipeline/internal/data/mongo"
	"github.com/al3-renewal-pipeline/internal/data/postgres"
	"github.com/al3-renewal-pipeline/internal/logger"
	"github.com/al3-renewal-pipeline/internal/platform/messaging/producers"
	"github.com/al3-renewal-pipeline/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka producer for batch processing jobs
	kafkaProducer, err := producers.NewBatchJobMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize batch job Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	batchRepo := postgres.NewBatchRepository(log, postgresDB)
	candidateRepo := postgres.NewCandidateRepository(log, postgresDB)
	comparisonRepo := postgres.NewComparisonRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	logRepo := mongo.NewProcessingLogRepository(log, mongoDB.Database())

	// Initialize services
	batchService := service.NewBatchService(log, postgresDB, batchRepo, candidateRepo, comparisonRepo, outboxRepo, logRepo)
	reviewService := service.NewReviewService(log, candidateRepo, comparisonRepo)

	// Initialize the job outbox dispatcher
	jobPublisher := dispatcher.NewJobPublisher(outboxRepo, kafkaProducer, log)
	poller := dispatcher.NewPoller(&cfg.JobOutbox, outboxRepo, jobPublisher, log)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, batchService, reviewService)
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

	// Start job outbox poller in goroutine; it stops when appCtx is canceled
	go poller.Start(appCtx)

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

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

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
