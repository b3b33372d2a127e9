package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockdesk/stockdesk/internal/analytics"
	jobmetrics "github.com/stockdesk/stockdesk/internal/jobs"
)

// IndicatorWarmer recomputes the cached dashboard views.
type IndicatorWarmer interface {
	Summary(ctx context.Context, asOf time.Time) (analytics.Summary, error)
	Invoicing(ctx context.Context, asOf time.Time) (analytics.Invoicing, error)
	TopSales(ctx context.Context) (analytics.TopSales, error)
}

// IndicatorWarmupJob refills the indicator cache after it was invalidated so
// the next dashboard load hits warm keys.
type IndicatorWarmupJob struct {
	Analytics IndicatorWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewIndicatorWarmupJob wires dependencies for the warmup handler.
func NewIndicatorWarmupJob(warmer IndicatorWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *IndicatorWarmupJob {
	return &IndicatorWarmupJob{
		Analytics: warmer,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes indicator warmup tasks.
func (j *IndicatorWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("indicator warmup: handler not configured")
	}
	var payload IndicatorWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskIndicatorWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("version", payload.Version))
	start := time.Now()
	// Same minute granularity as the HTTP handlers so the keys line up.
	asOf := j.now().Truncate(time.Minute)

	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	summary, err := j.Analytics.Summary(warmCtx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("warm indicator summary", slog.Any("error", err))
		return resultErr
	}
	if _, err := j.Analytics.Invoicing(warmCtx, asOf); err != nil {
		resultErr = err
		logger.Error("warm invoicing", slog.Any("error", err))
		return resultErr
	}
	if _, err := j.Analytics.TopSales(warmCtx); err != nil {
		resultErr = err
		logger.Error("warm top sales", slog.Any("error", err))
		return resultErr
	}

	warmed := len(summary.Indicators) + 2
	j.metrics().AddWarmedIndicators(warmed)
	logger.Info("completed indicator warmup", slog.Int("entries", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *IndicatorWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIndicatorWarmup))
	}
	return slog.Default().With(slog.String("job", TaskIndicatorWarmup))
}

func (j *IndicatorWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IndicatorWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
