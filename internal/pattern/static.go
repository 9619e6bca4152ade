package pattern

import "time"

// Static holds a constant rate for the whole run.
type Static struct {
	tps      float64
	duration time.Duration
}

func NewStatic(tps float64, duration time.Duration) (*Static, error) {
	if err := validateTPS("tps", tps); err != nil {
		return nil, err
	}
	if err := validateDuration("duration", duration); err != nil {
		return nil, err
	}
	return &Static{tps: tps, duration: duration}, nil
}

func (s *Static) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	return s.tps
}

func (s *Static) Duration() time.Duration { return s.duration }
