package pattern

import (
	"math"
	"time"
)

// Sine oscillates around a mean rate with the given amplitude and period.
// Values below 0 are clamped to 0.
type Sine struct {
	meanRate  float64
	amplitude float64
	total     time.Duration
	period    time.Duration
}

func NewSine(meanRate, amplitude float64, total, period time.Duration) (*Sine, error) {
	if err := validateTPSNonNegative("mean rate", meanRate); err != nil {
		return nil, err
	}
	if err := validateTPSNonNegative("amplitude", amplitude); err != nil {
		return nil, err
	}
	if err := validateDuration("total duration", total); err != nil {
		return nil, err
	}
	if err := validateDuration("period", period); err != nil {
		return nil, err
	}
	return &Sine{meanRate: meanRate, amplitude: amplitude, total: total, period: period}, nil
}

func (s *Sine) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	angle := 2 * math.Pi * float64(elapsed%s.period) / float64(s.period)
	value := s.meanRate + s.amplitude*math.Sin(angle)
	if value < 0 {
		return 0
	}
	return value
}

func (s *Sine) Duration() time.Duration { return s.total }
