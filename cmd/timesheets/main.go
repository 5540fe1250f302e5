package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"timesheets/internal/cache"
	"timesheets/internal/cli"
	"timesheets/internal/core"
	apphttp "timesheets/internal/http"
	applog "timesheets/internal/log"
	"timesheets/internal/middleware/ratelimit"
	"timesheets/internal/report"
	"timesheets/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	caches := cache.NewManager()
	optionsCache := cache.NewLRUCache[report.Tags](cfg.CacheSize, cfg.CacheTTL)
	projectsCache := cache.NewLRUCache[[]core.Project](cfg.CacheSize, cfg.CacheTTL)
	tasksCache := cache.NewLRUCache[[]core.Task](cfg.CacheSize, cfg.CacheTTL)
	caches.Register("filter_options", optionsCache)
	caches.Register("projects", projectsCache)
	caches.Register("tasks", tasksCache)
	caches.StartCleanup(cfg.CacheTTL)

	reports := report.NewService(repo,
		report.WithTimeout(cfg.ReportTimeout),
		report.WithOptionsCache(optionsCache))

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var publisher services.Publisher
	if client := cli.InitAMQP(logger, cfg); client != nil {
		defer client.Close()
		publisher = client
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:       repo,
		Report:      reports,
		Timesheets:  services.NewTimesheetService(repo, publisher),
		Bulk:        services.NewBulkService(repo, tasksCache, reports),
		Projects:    services.NewProjectService(repo, projectsCache, reports),
		Preferences: services.NewPreferenceService(repo),
		DB:          repo,
		Caches:      caches,
		Logger:      logger,
		RateLimit:   ratelimit.DefaultConfig(),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.ReportTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting timesheets server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
