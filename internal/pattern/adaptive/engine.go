package adaptive

import "time"

// recoveryTPSRatio seeds the recovery rate at half the last known good rate.
const recoveryTPSRatio = 0.5

// Decision is the output of one control tick: the phase and rate to move to.
// It is consumed immediately to produce the next State.
type Decision struct {
	Phase  Phase
	TPS    float64
	Reason string
}

// Decide is the adaptive state machine: a pure function of the current
// state, a metrics snapshot, the configuration, the decision policy, and the
// elapsed run time. It has no side effects and is safe to call from tests
// without any controller around it.
func Decide(current State, m MetricsSnapshot, cfg Config, policy DecisionPolicy, elapsed time.Duration) Decision {
	switch current.Phase {
	case PhaseRampUp:
		return decideRampUp(current, m, cfg, policy)
	case PhaseRampDown:
		return decideRampDown(current, m, cfg, policy)
	default:
		return decideSustain(current, m, cfg, policy, elapsed)
	}
}

func decideRampUp(current State, m MetricsSnapshot, cfg Config, policy DecisionPolicy) Decision {
	if policy.ShouldRampDown(m) {
		return Decision{PhaseRampDown, rampDownTPS(current.CurrentTPS, cfg), "errors or backpressure detected"}
	}
	if current.CurrentTPS >= cfg.MaxTPS {
		return Decision{PhaseSustain, current.CurrentTPS, "max tps reached"}
	}
	if isStable(current, m, cfg, policy) {
		return Decision{PhaseSustain, current.CurrentTPS, "stability detected"}
	}
	if policy.ShouldRampUp(m) {
		next := rampUpTPS(current.CurrentTPS, cfg)
		if next >= cfg.MaxTPS {
			return Decision{PhaseSustain, next, "max tps reached"}
		}
		return Decision{PhaseRampUp, next, "conditions good, ramping up"}
	}
	return Decision{PhaseRampUp, current.CurrentTPS, "moderate backpressure, holding"}
}

func decideRampDown(current State, m MetricsSnapshot, cfg Config, policy DecisionPolicy) Decision {
	if current.InRecovery {
		if policy.CanRecoverFromMinimum(m) {
			return Decision{PhaseRampUp, recoveryTPS(current.LastKnownGoodTPS, cfg), "recovery: conditions improved"}
		}
		return Decision{PhaseRampDown, cfg.MinTPS, "recovery: waiting for conditions to improve"}
	}
	if !policy.ShouldRampDown(m) {
		if isStable(current, m, cfg, policy) {
			return Decision{PhaseSustain, current.CurrentTPS, "stability detected during ramp down"}
		}
		return Decision{PhaseRampDown, current.CurrentTPS, "conditions improved, checking stability"}
	}
	return Decision{PhaseRampDown, rampDownTPS(current.CurrentTPS, cfg), "errors or backpressure persist, ramping down"}
}

func decideSustain(current State, m MetricsSnapshot, cfg Config, policy DecisionPolicy, elapsed time.Duration) Decision {
	if policy.ShouldRampDown(m) {
		return Decision{PhaseRampDown, rampDownTPS(current.CurrentTPS, cfg), "conditions worsened during sustain"}
	}
	if elapsed-current.PhaseStart >= cfg.SustainDuration &&
		policy.ShouldRampUp(m) && current.CurrentTPS < cfg.MaxTPS {
		return Decision{PhaseRampUp, rampUpTPS(current.CurrentTPS, cfg), "sustain duration elapsed, ramping up"}
	}
	return Decision{PhaseSustain, current.CurrentTPS, "continuing to sustain"}
}

// isStable checks the post-tick stability count: conditions must be good now
// and one more interval must satisfy the policy's requirement, so the engine
// can settle at an intermediate rate without ever reaching MaxTPS.
func isStable(current State, m MetricsSnapshot, cfg Config, policy DecisionPolicy) bool {
	if !policy.ShouldRampUp(m) {
		return false
	}
	return policy.ShouldSustain(current.StableIntervals+1, cfg.StableIntervalsRequired)
}

func rampUpTPS(tps float64, cfg Config) float64 {
	return min(cfg.MaxTPS, tps+cfg.RampIncrement)
}

func rampDownTPS(tps float64, cfg Config) float64 {
	return max(cfg.MinTPS, tps-cfg.RampDecrement)
}

func recoveryTPS(lastKnownGood float64, cfg Config) float64 {
	return max(cfg.MinTPS, lastKnownGood*recoveryTPSRatio)
}
