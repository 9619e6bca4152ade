// Package adaptive implements a load pattern that discovers the maximum
// sustainable rate of a target system: it ramps the target rate up until
// errors or backpressure appear, backs off, and settles on a stable rate.
package adaptive

import (
	"fmt"
	"math"
	"time"
)

// Config holds the tuning parameters of the adaptive pattern. It is a value
// type, constructed once and never mutated for the pattern's lifetime.
type Config struct {
	InitialTPS float64
	MaxTPS     float64
	MinTPS     float64

	// RampIncrement/RampDecrement are the per-interval rate adjustments.
	RampIncrement float64
	RampDecrement float64

	// RampInterval is the minimum time between control-loop adjustments.
	RampInterval time.Duration

	// SustainDuration is how long a stable rate is held before the
	// controller probes upward again.
	SustainDuration time.Duration

	// StableIntervalsRequired is the number of consecutive good intervals
	// needed before a rate counts as stable.
	StableIntervalsRequired int

	// InitialRampDuration, when positive, ramps the rate linearly from
	// MinTPS (floored at 0) to InitialTPS over this window before the
	// control loop starts making decisions.
	InitialRampDuration time.Duration
}

// DefaultConfig returns the documented default tuning.
func DefaultConfig() Config {
	return Config{
		InitialTPS:              100,
		MaxTPS:                  5000,
		MinTPS:                  10,
		RampIncrement:           50,
		RampDecrement:           100,
		RampInterval:            time.Minute,
		SustainDuration:         10 * time.Minute,
		StableIntervalsRequired: 3,
		InitialRampDuration:     0,
	}
}

// Validate rejects inconsistent configuration. Validation is fail-fast:
// invalid values are never silently clamped.
func (c Config) Validate() error {
	if c.InitialTPS <= 0 {
		return fmt.Errorf("initial tps must be positive, got %v", c.InitialTPS)
	}
	if c.MaxTPS <= 0 && !math.IsInf(c.MaxTPS, 1) {
		return fmt.Errorf("max tps must be positive or +Inf, got %v", c.MaxTPS)
	}
	if c.MinTPS < 0 {
		return fmt.Errorf("min tps must be non-negative, got %v", c.MinTPS)
	}
	if c.MinTPS >= c.MaxTPS && !math.IsInf(c.MaxTPS, 1) {
		return fmt.Errorf("min tps must be less than max tps, got min=%v max=%v", c.MinTPS, c.MaxTPS)
	}
	if c.RampIncrement <= 0 {
		return fmt.Errorf("ramp increment must be positive, got %v", c.RampIncrement)
	}
	if c.RampDecrement <= 0 {
		return fmt.Errorf("ramp decrement must be positive, got %v", c.RampDecrement)
	}
	if c.RampInterval <= 0 {
		return fmt.Errorf("ramp interval must be positive, got %v", c.RampInterval)
	}
	if c.SustainDuration <= 0 {
		return fmt.Errorf("sustain duration must be positive, got %v", c.SustainDuration)
	}
	if c.StableIntervalsRequired < 1 {
		return fmt.Errorf("stable intervals required must be at least 1, got %d", c.StableIntervalsRequired)
	}
	if c.InitialRampDuration < 0 {
		return fmt.Errorf("initial ramp duration must be non-negative, got %v", c.InitialRampDuration)
	}
	return nil
}
