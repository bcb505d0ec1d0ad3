package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/config"
	"baaseteen/case-portal/case-portal-backend/internal/database"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
)

// RetentionWorker periodically purges old notification rows
type RetentionWorker struct {
	purger *notifications.Purger
	logger *zap.Logger
	config RetentionWorkerConfig
}

// RetentionWorkerConfig configuration for the retention worker
type RetentionWorkerConfig struct {
	PollInterval time.Duration
	Retention    time.Duration
	PassTimeout  time.Duration
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(purger *notifications.Purger, logger *zap.Logger, config RetentionWorkerConfig) *RetentionWorker {
	return &RetentionWorker{
		purger: purger,
		logger: logger,
		config: config,
	}
}

// Start runs purge passes until ctx is cancelled
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting retention worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Duration("retention", w.config.Retention))

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Retention worker shutting down")
			return nil
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *RetentionWorker) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, w.config.PassTimeout)
	defer cancel()

	startTime := time.Now()
	cutoff := startTime.Add(-w.config.Retention)

	result, err := w.purger.Purge(passCtx, cutoff)
	if err != nil {
		w.logger.Error("Retention pass failed", zap.Error(err), zap.Time("cutoff", cutoff))
		return
	}
	if result.Notifications == 0 && result.DeliveryLogs == 0 {
		return
	}
	w.logger.Info("Retention pass completed",
		zap.Int64("notifications", result.Notifications),
		zap.Int64("delivery_logs", result.DeliveryLogs),
		zap.Duration("duration", time.Since(startTime)))
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	db, err := database.OpenSQLX(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	worker := NewRetentionWorker(notifications.NewPurger(db, 500), logger, RetentionWorkerConfig{
		PollInterval: cfg.Notifications.PurgeInterval,
		Retention:    cfg.Notifications.Retention,
		PassTimeout:  5 * time.Minute,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}

	logger.Info("Retention worker stopped")
}
