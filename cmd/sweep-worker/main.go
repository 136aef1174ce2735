package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kasa/internal/amqp"
	"kasa/internal/config"
	"kasa/internal/core"
	"kasa/internal/log"
	"kasa/internal/services"
	"kasa/internal/storage"
)

// sweep-worker runs the recurring payment sweep on an interval, for
// deployments that keep the HTTP server and the scheduler separate.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting sweep-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	scheduler := services.NewScheduler(repo, amqpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Sweep configured", "interval", cfg.SweepInterval, "db", cfg.SQLiteDBPath)

	// When a broker is configured, tail ledger events alongside the sweep
	// loop so the worker log doubles as an audit trail of posted and
	// reversed transactions.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
				logger.Info("Ledger event",
					"event", msg.Event,
					"id", msg.ID,
					"date", msg.Date)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Ledger event consumer stopped", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run an initial sweep on startup so overdue payments catch up
	// without waiting a full interval.
	if result, err := scheduler.Sweep(ctx, core.Today(time.Now())); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	} else {
		logger.Info("Initial sweep complete", "posted", result.Posted, "skipped", result.Skipped)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep-worker shutdown complete")
			return
		case now := <-ticker.C:
			result, err := scheduler.Sweep(ctx, core.Today(now))
			if err != nil {
				logger.Error("Periodic sweep failed", "error", err)
				continue
			}
			logger.Info("Periodic sweep complete",
				"posted", result.Posted,
				"skipped", result.Skipped,
				"failed", result.Failed)
		}
	}
}
