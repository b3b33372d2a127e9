package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stockdesk/stockdesk/internal/jobs"
)

// DefaultIdempotencyRetention keeps keys long enough for client retries.
const DefaultIdempotencyRetention = 72 * time.Hour

// KeyStore deletes stale idempotency keys.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyPurgeJob removes idempotency keys older than the retention.
type IdempotencyPurgeJob struct {
	Store   KeyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyPurgeJob wires the purge handler.
func NewIdempotencyPurgeJob(store KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyPurgeJob {
	return &IdempotencyPurgeJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes purge tasks.
func (j *IdempotencyPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency purge: handler not configured")
	}
	var payload IdempotencyPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyPurge)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := j.Store.Cleanup(ctx, payload.Retention); err != nil {
		logger.Error("purge idempotency keys", slog.Duration("retention", payload.Retention), slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("purged idempotency keys", slog.Duration("retention", payload.Retention))
	return tracker.End(nil)
}
