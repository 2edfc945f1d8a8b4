// Package jobs holds the asynq task definitions and the worker runtime
// for background processing: the periodic amortization sweep and the
// inflation index cache refresh.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sigecon/sigecon/internal/fixedassets"
	"github.com/sigecon/sigecon/internal/inflation"
	jobmetrics "github.com/sigecon/sigecon/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAmortizationSweep regenerates depreciation entries for every
	// active asset in a fiscal period.
	TaskAmortizationSweep = "fixedassets:amortization_sweep"
	// TaskIndexRefresh rebuilds the inflation index cache.
	TaskIndexRefresh = "inflation:index_refresh"
)

// AmortizationSweepPayload selects the fiscal period to sweep. A zero
// month sweeps the annual entries; zero year defaults to the previous
// calendar year, the one being closed.
type AmortizationSweepPayload struct {
	FiscalYear int `json:"fiscal_year"`
	Month      int `json:"month"`
}

// NewAmortizationSweepTask constructs the sweep task.
func NewAmortizationSweepTask(payload AmortizationSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAmortizationSweep, data), nil
}

// NewIndexRefreshTask constructs the cache refresh task.
func NewIndexRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskIndexRefresh, nil)
}

// NewAmortizationSweepHandler builds the sweep handler over the
// fixed-assets service. Per-asset failures are logged and skipped so a
// single bad record does not stall the whole sweep.
func NewAmortizationSweepHandler(service *fixedassets.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) (err error) {
		tracker := metrics.Track(TaskAmortizationSweep)
		defer func() { err = tracker.End(err) }()

		var payload AmortizationSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.FiscalYear == 0 {
			payload.FiscalYear = time.Now().Year() - 1
		}

		assets, err := service.ListAssets(ctx)
		if err != nil {
			return err
		}
		var failed, skipped int
		for _, a := range assets {
			result, err := service.SyncAmortization(ctx, a.ID, payload.FiscalYear, time.Month(payload.Month))
			if err != nil {
				failed++
				logger.Warn("amortization sweep asset failed",
					slog.String("asset_id", a.ID.String()),
					slog.Int("fiscal_year", payload.FiscalYear),
					slog.Any("error", err))
				continue
			}
			if result.Status == fixedassets.SyncSkipped {
				skipped++
			}
			logger.Debug("amortization sweep asset",
				slog.String("asset_id", a.ID.String()),
				slog.String("status", string(result.Status)))
		}
		metrics.AddSkipped(TaskAmortizationSweep, skipped)
		logger.Info("amortization sweep done",
			slog.Int("fiscal_year", payload.FiscalYear),
			slog.Int("month", payload.Month),
			slog.Int("assets", len(assets)),
			slog.Int("skipped", skipped),
			slog.Int("failed", failed))
		return nil
	}
}

// NewIndexRefreshHandler builds the index cache refresh handler.
func NewIndexRefreshHandler(service *inflation.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskIndexRefresh)
		if err := service.Refresh(ctx); err != nil {
			logger.Warn("index cache refresh failed", slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
