package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports service operation counters and latency
// histograms.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg, or
// with the default registry when reg is nil.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gardencore",
				Subsystem: "service",
				Name:      "operations_total",
				Help:      "Total number of service operations by status",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gardencore",
				Subsystem: "service",
				Name:      "operation_duration_seconds",
				Help:      "Duration of service operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
	}
}

// Observe implements MetricsRecorder.
func (p *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	p.operations.WithLabelValues(operation, status).Inc()
	p.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
