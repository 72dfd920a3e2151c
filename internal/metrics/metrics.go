// Package metrics holds the Prometheus collectors of the dashboard API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "solar"

var (
	// KPISnapshotsTotal counts computed executive snapshots by range.
	KPISnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kpi_snapshots_total",
			Help:      "Total number of executive KPI snapshots computed, by range.",
		},
		[]string{"range"},
	)

	// ReportStepsTotal counts reporting steps by step and outcome
	// (ok, simulated or the error kind).
	ReportStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_steps_total",
			Help:      "Total number of report pipeline steps by step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	ReportStepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_step_duration_seconds",
			Help:      "Report pipeline step duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"step"},
	)

	// RealtimeSamplesTotal counts samples appended to the sampler by origin
	// (simulation, mqtt, dynamodb).
	RealtimeSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_samples_total",
			Help:      "Total number of realtime samples ingested, by source.",
		},
		[]string{"source"},
	)

	RecordsReloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_reload_total",
			Help:      "Total number of record reloads by outcome.",
		},
		[]string{"outcome"},
	)
)
