package main

import (
	"context"
	"errors"
	"os"
	"time"

	"timesheets/internal/amqp"
	"timesheets/internal/cli"
	"timesheets/internal/core"
	applog "timesheets/internal/log"
	"timesheets/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	logger.Info("Starting timesheets-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Only approvals produce spreadsheet rows.
	client := cli.InitAMQP(logger, cfg, amqp.RoutingKeyFor(core.StatusApproved))
	if client == nil {
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	writer := cli.InitSheetsWriter(ctx, logger, cfg)
	syncWorker := worker.NewSyncWorker(repo, writer, cfg.SyncBatchSize)

	// Replay approvals that may have been missed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	go func() {
		err := client.ConsumeTimesheetEvents(ctx, syncWorker.HandleTimesheetEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
