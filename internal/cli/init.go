// Package cli provides common CLI initialization utilities shared by
// cmd/timesheets, cmd/timesheets-worker and cmd/reportctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timesheets/internal/amqp"
	"timesheets/internal/config"
	applog "timesheets/internal/log"
	"timesheets/internal/sheets"
	"timesheets/internal/sheets/google"
	"timesheets/internal/sheets/memory"
	"timesheets/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitAMQP connects to the broker when AMQP_URL is set. It returns nil when
// AMQP is disabled or unreachable; callers treat nil as "no events".
func InitAMQP(logger *applog.Logger, cfg *config.Config, bindings ...string) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, timesheet events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, bindings...)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "exchange", cfg.AMQPExchange)
		return nil
	}
	logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// InitSheetsWriter returns the approved-time sink selected by SHEETS_BACKEND.
func InitSheetsWriter(ctx context.Context, logger *applog.Logger, cfg *config.Config) sheets.ApprovedTimeWriter {
	if cfg.SheetsBackend != "google" {
		logger.Info("Using in-memory sheets backend")
		return memory.New()
	}
	client, err := google.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Using Google Sheets backend", "sheet", client.SheetName(time.Now().Year()))
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
