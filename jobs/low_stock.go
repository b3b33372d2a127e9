package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockdesk/stockdesk/internal/catalog"
	jobmetrics "github.com/stockdesk/stockdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Notifier delivers a low stock alert to the people restocking the shelves.
type Notifier interface {
	Notify(ctx context.Context, alert LowStockAlertPayload) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert at warn level.
func (n LogNotifier) Notify(ctx context.Context, alert LowStockAlertPayload) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, alert.Message,
		slog.Int64("product_id", alert.ProductID),
		slog.String("product_name", alert.ProductName),
		slog.Int("quantity", alert.Quantity),
		slog.Time("raised_at", alert.RaisedAt),
	)
	return nil
}

// StockSource lists active products under a quantity threshold.
type StockSource interface {
	BelowThreshold(ctx context.Context, threshold int) ([]catalog.Product, error)
}

// LowStockJob handles sale-raised alerts and the periodic catalog sweep.
type LowStockJob struct {
	Source   StockSource
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewLowStockJob wires dependencies for the low stock handlers.
func NewLowStockJob(source StockSource, notifier Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &LowStockJob{
		Source:   source,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleAlert delivers one alert.
func (j *LowStockJob) HandleAlert(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifier == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ProductID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskLowStockAlert)
	if err := j.Notifier.Notify(ctx, payload); err != nil {
		j.logger(TaskLowStockAlert).Error("notify low stock", slog.Int64("product_id", payload.ProductID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddLowStockAlerts(1)
	return tracker.End(nil)
}

// HandleScan notifies every active product under the payload threshold.
func (j *LowStockJob) HandleScan(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil || j.Notifier == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Threshold <= 0 {
		payload.Threshold = catalog.LowStockThreshold
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskLowStockScan).With(slog.Int("threshold", payload.Threshold))
	products, err := j.Source.BelowThreshold(ctx, payload.Threshold)
	if err != nil {
		resultErr = err
		logger.Error("load low stock products", slog.Any("error", err))
		return resultErr
	}
	now := j.now()
	for _, p := range products {
		alert := LowStockAlertPayload{
			StockAlert: catalog.StockAlert{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    p.Quantity,
				Message:     catalog.LowStockMessage(p.Quantity),
			},
			RaisedAt: now,
		}
		if err := j.Notifier.Notify(ctx, alert); err != nil {
			resultErr = err
			logger.Error("notify low stock", slog.Int64("product_id", p.ID), slog.Any("error", err))
			return resultErr
		}
	}
	j.metrics().AddLowStockAlerts(len(products))
	logger.Info("completed low stock scan", slog.Int("products", len(products)))
	return resultErr
}

func (j *LowStockJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *LowStockJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LowStockJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
