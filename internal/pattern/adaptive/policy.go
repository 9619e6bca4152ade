package adaptive

import "fmt"

// DecisionPolicy is the set of pure predicates the decision engine evaluates
// against a metrics snapshot. Implementations must be stateless.
type DecisionPolicy interface {
	// ShouldRampUp reports whether conditions are good enough to push the
	// rate higher.
	ShouldRampUp(m MetricsSnapshot) bool

	// ShouldRampDown reports whether errors or backpressure demand
	// backing off.
	ShouldRampDown(m MetricsSnapshot) bool

	// ShouldSustain reports whether enough consecutive stable intervals
	// have accumulated.
	ShouldSustain(stableIntervals, required int) bool

	// CanRecoverFromMinimum reports whether conditions at the rate floor
	// have improved enough to attempt ramping up again.
	CanRecoverFromMinimum(m MetricsSnapshot) bool
}

// ThresholdPolicy decides on fixed error and backpressure watermarks.
// The low watermark gates ramp-up, the high watermark forces ramp-down,
// and the band between them holds the current rate.
type ThresholdPolicy struct {
	errorThreshold   float64
	backpressureLow  float64
	backpressureHigh float64

	recoveryLow      float64
	recoveryModerate float64
}

// NewThresholdPolicy builds a policy with the given error threshold and
// backpressure watermarks. Watermarks must satisfy low < high; recovery
// thresholds are fixed at 0.3 (low) and 0.5 (moderate).
func NewThresholdPolicy(errorThreshold, backpressureLow, backpressureHigh float64) (*ThresholdPolicy, error) {
	if errorThreshold < 0 || errorThreshold > 1 {
		return nil, fmt.Errorf("error threshold must be in [0,1], got %v", errorThreshold)
	}
	if backpressureLow < 0 || backpressureLow > 1 {
		return nil, fmt.Errorf("backpressure low watermark must be in [0,1], got %v", backpressureLow)
	}
	if backpressureHigh < 0 || backpressureHigh > 1 {
		return nil, fmt.Errorf("backpressure high watermark must be in [0,1], got %v", backpressureHigh)
	}
	if backpressureLow >= backpressureHigh {
		return nil, fmt.Errorf("backpressure low watermark %v must be less than high watermark %v", backpressureLow, backpressureHigh)
	}
	return &ThresholdPolicy{
		errorThreshold:   errorThreshold,
		backpressureLow:  backpressureLow,
		backpressureHigh: backpressureHigh,
		recoveryLow:      0.3,
		recoveryModerate: 0.5,
	}, nil
}

// DefaultPolicy returns a policy with the given error threshold and the
// documented default watermarks (0.3 low, 0.7 high).
func DefaultPolicy(errorThreshold float64) (*ThresholdPolicy, error) {
	return NewThresholdPolicy(errorThreshold, 0.3, 0.7)
}

func (p *ThresholdPolicy) ShouldRampUp(m MetricsSnapshot) bool {
	return m.FailureRate < p.errorThreshold && m.Backpressure < p.backpressureLow
}

func (p *ThresholdPolicy) ShouldRampDown(m MetricsSnapshot) bool {
	return m.FailureRate >= p.errorThreshold || m.Backpressure >= p.backpressureHigh
}

func (p *ThresholdPolicy) ShouldSustain(stableIntervals, required int) bool {
	return stableIntervals >= required
}

// CanRecoverFromMinimum is deliberately lenient: the recent-window failure
// rate is consulted so one old burst of failures does not pin the pattern at
// the floor.
func (p *ThresholdPolicy) CanRecoverFromMinimum(m MetricsSnapshot) bool {
	if m.Backpressure < p.recoveryLow {
		return true
	}
	return m.RecentFailureRate < p.errorThreshold && m.Backpressure < p.recoveryModerate
}
