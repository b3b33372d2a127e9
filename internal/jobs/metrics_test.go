package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			match := true
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					match = false
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("catalog:low-stock-alert").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("catalog:low-stock-alert").End(boom), boom)

	job := map[string]string{"job": "catalog:low-stock-alert"}
	assert.Equal(t, 1.0, counterValue(t, reg, "stockdesk_jobs_total", map[string]string{"job": "catalog:low-stock-alert", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "stockdesk_jobs_failures_total", job))

	m.AddLowStockAlerts(2)
	m.AddLowStockAlerts(0)
	assert.Equal(t, 2.0, counterValue(t, reg, "stockdesk_low_stock_notifications_total", nil))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddLowStockAlerts(1)
	m.AddWarmedIndicators(1)
	assert.NoError(t, m.Track("x").End(nil))
}
