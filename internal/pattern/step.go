package pattern

import (
	"fmt"
	"time"
)

// Step is one plateau of a stepped load profile.
type Step struct {
	Rate     float64
	Duration time.Duration
}

// StepLoad walks through a sequence of rate plateaus in order. Past the last
// step the rate drops to 0.
type StepLoad struct {
	steps []Step
	total time.Duration
}

func NewStepLoad(steps []Step) (*StepLoad, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("steps must not be empty")
	}
	var total time.Duration
	for i, s := range steps {
		if err := validateTPSNonNegative(fmt.Sprintf("step %d rate", i), s.Rate); err != nil {
			return nil, err
		}
		if err := validateDuration(fmt.Sprintf("step %d duration", i), s.Duration); err != nil {
			return nil, err
		}
		total += s.Duration
	}
	copied := make([]Step, len(steps))
	copy(copied, steps)
	return &StepLoad{steps: copied, total: total}, nil
}

func (l *StepLoad) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	remaining := elapsed
	for _, s := range l.steps {
		if remaining < s.Duration {
			return s.Rate
		}
		remaining -= s.Duration
	}
	return 0
}

func (l *StepLoad) Duration() time.Duration { return l.total }
