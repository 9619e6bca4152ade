package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// maxPaceSleep caps one pacing wait so the caller re-reads the target
// rate at least once per second while a pattern changes underneath it.
const maxPaceSleep = time.Second

// pollQuantum is how long the controller naps when the target rate is
// zero before the caller checks for a non-zero rate again.
const pollQuantum = 100 * time.Millisecond

// RateController paces dispatches to a moving target rate. The target
// comes from a load pattern re-evaluated on every call, so a ramp or an
// adaptive decision takes effect on the very next dispatch.
type RateController struct {
	limiter *rate.Limiter
	current rate.Limit
}

// NewRateController starts at startTPS executions per second with a
// burst of one token, keeping dispatch spacing even rather than bursty.
func NewRateController(startTPS float64) *RateController {
	lim := rate.Limit(startTPS)
	return &RateController{
		limiter: rate.NewLimiter(lim, 1),
		current: lim,
	}
}

// Wait blocks until the next dispatch is due at targetTPS, or ctx is
// done. It returns true when a dispatch slot was consumed and false
// when it napped without one, in which case the caller should re-read
// the target rate and call again. A zero or negative target parks in
// pollQuantum naps instead of blocking forever, so the rate can come
// back without a restart. Uses Reserve() to guarantee exactly one token
// is consumed per granted slot.
func (rc *RateController) Wait(ctx context.Context, targetTPS float64) (bool, error) {
	if targetTPS <= 0 {
		select {
		case <-time.After(pollQuantum):
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	if lim := rate.Limit(targetTPS); lim != rc.current {
		rc.limiter.SetLimit(lim)
		rc.current = lim
	}

	r := rc.limiter.Reserve()
	if !r.OK() {
		// Burst of 1 with a finite rate always reserves; treat an
		// impossible reservation as an immediate slot.
		return true, nil
	}
	delay := r.Delay()
	if delay <= 0 {
		return true, nil
	}
	if delay > maxPaceSleep {
		// Give the token back and nap a capped slice, then let the
		// caller re-reserve against the possibly-changed rate.
		r.Cancel()
		select {
		case <-time.After(maxPaceSleep):
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	select {
	case <-time.After(delay):
		return true, nil
	case <-ctx.Done():
		r.Cancel()
		return false, ctx.Err()
	}
}
