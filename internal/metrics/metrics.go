package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_sessions_active",
		Help: "Currently connected capture sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_sessions_total",
		Help: "Total capture sessions served",
	})

	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_runs_total",
		Help: "Total pipeline runs started",
	})

	RunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_runs_failed_total",
		Help: "Pipeline runs ended by a stage failure",
	})

	RunsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_runs_abandoned_total",
		Help: "Pipeline runs cancelled before completion",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	E2EDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistant_run_duration_seconds",
		Help:    "End-to-end latency from capture receipt to playback",
		Buckets: []float64{0.5, 1.0, 2.0, 3.0, 5.0, 8.0, 12.0, 20.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_errors_total",
		Help: "Stage errors by stage and kind",
	}, []string{"stage", "kind"})
)
