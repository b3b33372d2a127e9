package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockdesk/stockdesk/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries low stock notifications.
	QueueCritical = "critical"

	// TaskLowStockAlert notifies about one product under the threshold.
	TaskLowStockAlert = "catalog:low-stock-alert"
	// TaskLowStockScan sweeps the catalog for products under the threshold.
	TaskLowStockScan = "catalog:low-stock-scan"
	// TaskIndicatorWarmup recomputes the indicator summary after a cache bump.
	TaskIndicatorWarmup = "analytics:indicator-warmup"
	// TaskIdempotencyPurge drops sale idempotency keys past retention.
	TaskIdempotencyPurge = "sales:idempotency-purge"
)

// WarmupUniqueTTL bounds how often a warmup can be queued.
const WarmupUniqueTTL = time.Minute

// LowStockAlertPayload is the alert raised by a sale.
type LowStockAlertPayload struct {
	catalog.StockAlert
	RaisedAt time.Time `json:"raised_at"`
}

// LowStockScanPayload configures a catalog sweep.
type LowStockScanPayload struct {
	Threshold int `json:"threshold"`
}

// IndicatorWarmupPayload identifies the cache version to warm.
type IndicatorWarmupPayload struct {
	Version int64 `json:"version"`
}

// NewLowStockAlertTask constructs a low stock notification task.
func NewLowStockAlertTask(alert catalog.StockAlert, raisedAt time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockAlertPayload{StockAlert: alert, RaisedAt: raisedAt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data, asynq.Queue(QueueCritical), asynq.MaxRetry(5)), nil
}

// NewLowStockScanTask constructs the periodic catalog sweep.
func NewLowStockScanTask(threshold int) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// NewIndicatorWarmupTask constructs a warmup task. Tasks for the same version
// are deduplicated for WarmupUniqueTTL.
func NewIndicatorWarmupTask(version int64) (*asynq.Task, error) {
	data, err := json.Marshal(IndicatorWarmupPayload{Version: version})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIndicatorWarmup, data, asynq.Unique(WarmupUniqueTTL), asynq.MaxRetry(3)), nil
}

// IdempotencyPurgePayload sets the key retention window.
type IdempotencyPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyPurgeTask constructs the periodic idempotency key purge.
func NewIdempotencyPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyPurge, data, asynq.MaxRetry(1)), nil
}
