package pattern

import (
	"fmt"
	"time"
)

// Spike alternates between a base rate and a spike rate: every spikeInterval
// the rate jumps to spikeRate for spikeDuration, then falls back.
type Spike struct {
	baseRate      float64
	spikeRate     float64
	total         time.Duration
	spikeInterval time.Duration
	spikeDuration time.Duration
}

func NewSpike(baseRate, spikeRate float64, total, spikeInterval, spikeDuration time.Duration) (*Spike, error) {
	if err := validateTPSNonNegative("base rate", baseRate); err != nil {
		return nil, err
	}
	if err := validateTPSNonNegative("spike rate", spikeRate); err != nil {
		return nil, err
	}
	if err := validateDuration("total duration", total); err != nil {
		return nil, err
	}
	if err := validateDuration("spike interval", spikeInterval); err != nil {
		return nil, err
	}
	if err := validateDuration("spike duration", spikeDuration); err != nil {
		return nil, err
	}
	if spikeDuration >= spikeInterval {
		return nil, fmt.Errorf("spike duration %v must be less than spike interval %v", spikeDuration, spikeInterval)
	}
	return &Spike{
		baseRate:      baseRate,
		spikeRate:     spikeRate,
		total:         total,
		spikeInterval: spikeInterval,
		spikeDuration: spikeDuration,
	}, nil
}

func (s *Spike) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	if elapsed%s.spikeInterval < s.spikeDuration {
		return s.spikeRate
	}
	return s.baseRate
}

func (s *Spike) Duration() time.Duration { return s.total }
