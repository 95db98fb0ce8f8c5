package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotTotal counts snapshot generation requests by outcome.
	SnapshotTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_snapshot_total",
			Help: "Total number of snapshot generation runs",
		},
		[]string{"status"},
	)

	// SnapshotDuration measures end-to-end snapshot generation duration.
	SnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metrics_snapshot_duration_seconds",
			Help:    "Snapshot generation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// UpstreamCallsTotal counts calls to external data sources.
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_upstream_calls_total",
			Help: "Total number of upstream data source calls",
		},
		[]string{"source", "operation", "outcome"},
	)

	// DegradedFieldsTotal counts usage fields degraded to zero.
	DegradedFieldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_degraded_fields_total",
			Help: "Total number of snapshot fields degraded to a safe default",
		},
		[]string{"field"},
	)

	// SnapshotPersistFailures counts failed async snapshot appends.
	SnapshotPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metrics_snapshot_persist_failures_total",
			Help: "Total number of failed snapshot history appends",
		},
	)
)
