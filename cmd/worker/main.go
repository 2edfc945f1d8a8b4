package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sigecon/sigecon/internal/app"
	"github.com/sigecon/sigecon/internal/fixedassets"
	"github.com/sigecon/sigecon/internal/inflation"
	jobmetrics "github.com/sigecon/sigecon/internal/jobs"
	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/observability"
	"github.com/sigecon/sigecon/internal/platform/cache"
	"github.com/sigecon/sigecon/internal/platform/db"
	"github.com/sigecon/sigecon/internal/shared"
	"github.com/sigecon/sigecon/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	auditLogger := shared.NewAuditLogger(pool)

	ledgerStore := ledger.NewRepository(pool)
	inflationRepo := inflation.NewRepository(pool)
	inflationService := inflation.NewService(inflationRepo, redisClient, logger)

	assetsRepo := fixedassets.NewRepository(pool)
	resolver := fixedassets.NewResolver(ledgerStore, nil)
	assetsService := fixedassets.NewService(assetsRepo, ledgerStore, resolver, logger).
		WithAudit(auditLogger).
		WithMetrics(metrics).
		WithIndexSource(inflationService)

	sweepTask, err := jobs.NewAmortizationSweepTask(jobs.AmortizationSweepPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAmortizationSweep, Handler: jobs.NewAmortizationSweepHandler(assetsService, logger, jobMetrics)},
			{Type: jobs.TaskIndexRefresh, Handler: jobs.NewIndexRefreshHandler(inflationService, logger, jobMetrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 0 * * *", Task: jobs.NewIndexRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.WorkerAddr, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker metrics shutdown", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
