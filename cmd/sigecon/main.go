package main

import (
	"context"
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
	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/observability"
	"github.com/sigecon/sigecon/internal/platform/cache"
	"github.com/sigecon/sigecon/internal/platform/db"
	"github.com/sigecon/sigecon/internal/shared"
	"github.com/sigecon/sigecon/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	auditLogger := shared.NewAuditLogger(dbpool)

	ledgerStore := ledger.NewRepository(dbpool)

	inflationRepo := inflation.NewRepository(dbpool)
	inflationService := inflation.NewService(inflationRepo, redisClient, logger)
	inflationHandler := inflation.NewHandler(logger, inflationService)

	assetsRepo := fixedassets.NewRepository(dbpool)
	resolver := fixedassets.NewResolver(ledgerStore, nil)
	assetsService := fixedassets.NewService(assetsRepo, ledgerStore, resolver, logger).
		WithAudit(auditLogger).
		WithMetrics(metrics).
		WithIndexSource(inflationService)
	assetsHandler := fixedassets.NewHandler(logger, assetsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AssetsHandler:    assetsHandler,
		InflationHandler: inflationHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
