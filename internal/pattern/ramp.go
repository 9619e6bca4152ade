package pattern

import "time"

// RampUp linearly increases the rate from 0 to maxTPS over its duration.
type RampUp struct {
	maxTPS   float64
	duration time.Duration
}

func NewRampUp(maxTPS float64, duration time.Duration) (*RampUp, error) {
	if err := validateTPS("max tps", maxTPS); err != nil {
		return nil, err
	}
	if err := validateDuration("duration", duration); err != nil {
		return nil, err
	}
	return &RampUp{maxTPS: maxTPS, duration: duration}, nil
}

func (r *RampUp) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	if elapsed >= r.duration {
		return r.maxTPS
	}
	return r.maxTPS * float64(elapsed) / float64(r.duration)
}

func (r *RampUp) Duration() time.Duration { return r.duration }

// RampUpToMax ramps from 0 to maxTPS, then sustains maxTPS.
type RampUpToMax struct {
	ramp            *RampUp
	sustainDuration time.Duration
}

func NewRampUpToMax(maxTPS float64, rampDuration, sustainDuration time.Duration) (*RampUpToMax, error) {
	ramp, err := NewRampUp(maxTPS, rampDuration)
	if err != nil {
		return nil, err
	}
	if err := validateDuration("sustain duration", sustainDuration); err != nil {
		return nil, err
	}
	return &RampUpToMax{ramp: ramp, sustainDuration: sustainDuration}, nil
}

func (r *RampUpToMax) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}
	if elapsed < r.ramp.duration {
		return r.ramp.TPS(elapsed)
	}
	return r.ramp.maxTPS
}

func (r *RampUpToMax) Duration() time.Duration {
	return r.ramp.duration + r.sustainDuration
}
