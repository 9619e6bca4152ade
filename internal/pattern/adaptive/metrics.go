package adaptive

import "time"

// MetricsProvider is the narrow read-only contract the controller consumes.
// Rates are percentages in [0,100].
type MetricsProvider interface {
	// FailureRate returns the all-time failure percentage.
	FailureRate() float64

	// RecentFailureRate returns the failure percentage over the trailing
	// window. Implementations may fall back to the all-time rate when the
	// window holds no data.
	RecentFailureRate(window time.Duration) float64

	TotalExecutions() int64
}

// BackpressureProvider supplies a normalized downstream-saturation signal.
type BackpressureProvider interface {
	// BackpressureLevel returns a value in [0,1]; 0 means no pressure.
	BackpressureLevel() float64
}

// MetricsSnapshot is the per-tick view of the providers. Rates are ratios in
// [0,1], converted from the provider percentages at capture time. Snapshots
// are ephemeral and not retained across ticks.
type MetricsSnapshot struct {
	FailureRate       float64
	RecentFailureRate float64
	Backpressure      float64
	TotalExecutions   int64
}

// recentWindow is the trailing window used for the recovery predicate, so a
// single historical burst of failures cannot block recovery forever.
const recentWindow = 10 * time.Second

func captureSnapshot(metrics MetricsProvider, backpressure BackpressureProvider) MetricsSnapshot {
	level := 0.0
	if backpressure != nil {
		level = backpressure.BackpressureLevel()
	}
	return MetricsSnapshot{
		FailureRate:       metrics.FailureRate() / 100,
		RecentFailureRate: metrics.RecentFailureRate(recentWindow) / 100,
		Backpressure:      level,
		TotalExecutions:   metrics.TotalExecutions(),
	}
}
