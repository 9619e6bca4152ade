package pattern

import (
	"fmt"
	"time"
)

// RunPhase identifies where a WarmupCooldown run currently is.
type RunPhase string

const (
	PhaseWarmup      RunPhase = "warmup"
	PhaseSteadyState RunPhase = "steady_state"
	PhaseCooldown    RunPhase = "cooldown"
	PhaseComplete    RunPhase = "complete"
)

// WarmupCooldown wraps a base pattern with a linear warm-up from 0 to the
// base's initial rate and a linear cool-down from the base's final rate to 0.
// Metrics recorded outside the steady-state window are typically excluded
// from analysis; ShouldRecordMetrics reports the window.
type WarmupCooldown struct {
	base     LoadPattern
	warmup   time.Duration
	cooldown time.Duration
}

func NewWarmupCooldown(base LoadPattern, warmup, cooldown time.Duration) (*WarmupCooldown, error) {
	if base == nil {
		return nil, fmt.Errorf("base pattern must not be nil")
	}
	if warmup < 0 {
		return nil, fmt.Errorf("warmup duration must be non-negative, got %v", warmup)
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("cooldown duration must be non-negative, got %v", cooldown)
	}
	return &WarmupCooldown{base: base, warmup: warmup, cooldown: cooldown}, nil
}

// WithWarmup wraps base with only a warm-up window.
func WithWarmup(base LoadPattern, warmup time.Duration) (*WarmupCooldown, error) {
	return NewWarmupCooldown(base, warmup, 0)
}

// WithCooldown wraps base with only a cool-down window.
func WithCooldown(base LoadPattern, cooldown time.Duration) (*WarmupCooldown, error) {
	return NewWarmupCooldown(base, 0, cooldown)
}

// Phase returns the run phase at the given elapsed time.
func (w *WarmupCooldown) Phase(elapsed time.Duration) RunPhase {
	steadyEnd := w.warmup + w.base.Duration()
	switch {
	case elapsed < w.warmup:
		return PhaseWarmup
	case elapsed < steadyEnd:
		return PhaseSteadyState
	case elapsed < steadyEnd+w.cooldown:
		return PhaseCooldown
	default:
		return PhaseComplete
	}
}

// ShouldRecordMetrics reports whether results at the given elapsed time
// belong to the steady-state measurement window.
func (w *WarmupCooldown) ShouldRecordMetrics(elapsed time.Duration) bool {
	return w.Phase(elapsed) == PhaseSteadyState
}

func (w *WarmupCooldown) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	steadyEnd := w.warmup + w.base.Duration()
	switch {
	case elapsed < w.warmup:
		initial := w.base.TPS(0)
		return initial * float64(elapsed) / float64(w.warmup)
	case elapsed < steadyEnd:
		return w.base.TPS(elapsed - w.warmup)
	case elapsed < steadyEnd+w.cooldown:
		final := w.base.TPS(w.base.Duration())
		progress := 1 - float64(elapsed-steadyEnd)/float64(w.cooldown)
		if progress < 0 {
			return 0
		}
		return final * progress
	default:
		return 0
	}
}

func (w *WarmupCooldown) Duration() time.Duration {
	return w.warmup + w.base.Duration() + w.cooldown
}

// Base returns the wrapped steady-state pattern.
func (w *WarmupCooldown) Base() LoadPattern { return w.base }
