// Package pattern defines load patterns: pure functions from elapsed run
// time to a target rate in executions per second.
package pattern

import (
	"fmt"
	"time"
)

// LoadPattern maps elapsed run time to a target rate. Implementations must
// return 0 for negative elapsed time. Stateless patterns are pure functions
// and safe for concurrent use; the adaptive pattern is stateful and must be
// driven monotonically from a single logical caller.
type LoadPattern interface {
	// TPS returns the target executions-per-second at the given elapsed
	// time. Never negative.
	TPS(elapsed time.Duration) float64

	// Duration returns the total intended run duration. The execution
	// engine, not the pattern, enforces it.
	Duration() time.Duration
}

func validateTPS(name string, tps float64) error {
	if tps <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, tps)
	}
	return nil
}

func validateTPSNonNegative(name string, tps float64) error {
	if tps < 0 {
		return fmt.Errorf("%s must be non-negative, got %v", name, tps)
	}
	return nil
}

func validateDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return nil
}
