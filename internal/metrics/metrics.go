package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine, pattern and backpressure series, partitioned by run ID.

var (
	// Engine
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "executions_total",
		Help:      "Total task executions by outcome",
	}, []string{"run_id", "outcome"})

	ExecutionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "execution_errors_total",
		Help:      "Total failed task executions by error class",
	}, []string{"run_id", "class"})

	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "execution_duration_seconds",
		Help:      "Task execution duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"run_id"})

	PendingExecutions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "pending_executions",
		Help:      "Current number of dispatched executions not yet completed",
	}, []string{"run_id"})

	DispatchesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "dispatches_dropped_total",
		Help:      "Total dispatches shed by the backpressure handler",
	}, []string{"run_id"})

	DispatchesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "engine",
		Name:      "dispatches_rejected_total",
		Help:      "Total dispatches rejected by the backpressure handler",
	}, []string{"run_id"})

	// Adaptive pattern
	PatternCurrentTPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vajrapulse",
		Subsystem: "pattern",
		Name:      "current_tps",
		Help:      "Current target executions per second",
	}, []string{"run_id"})

	PatternStableTPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vajrapulse",
		Subsystem: "pattern",
		Name:      "stable_tps",
		Help:      "Detected stable rate (-1 until one is found)",
	}, []string{"run_id"})

	PatternPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vajrapulse",
		Subsystem: "pattern",
		Name:      "phase",
		Help:      "Adaptive phase (0=ramp_up, 1=ramp_down, 2=sustain)",
	}, []string{"run_id"})

	PatternPhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "pattern",
		Name:      "phase_transitions_total",
		Help:      "Total adaptive phase transitions",
	}, []string{"run_id"})

	// Backpressure
	BackpressureLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vajrapulse",
		Subsystem: "backpressure",
		Name:      "level",
		Help:      "Current normalized backpressure level",
	}, []string{"run_id"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vajrapulse",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
