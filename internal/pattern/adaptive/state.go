package adaptive

import "time"

// Phase is the adaptive controller's state machine phase.
type Phase int

const (
	PhaseRampUp Phase = iota
	PhaseRampDown
	PhaseSustain
)

func (p Phase) String() string {
	switch p {
	case PhaseRampUp:
		return "ramp_up"
	case PhaseRampDown:
		return "ramp_down"
	case PhaseSustain:
		return "sustain"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the controller. It is replaced wholesale
// via atomic compare-and-swap on every control tick; fields are never mutated
// in place, so a reader always observes a fully-formed state.
type State struct {
	Phase      Phase
	CurrentTPS float64

	// LastAdjustment and PhaseStart are elapsed-time offsets from run
	// start. LastAdjustment is negative before the first tick.
	LastAdjustment time.Duration
	PhaseStart     time.Duration

	// StableTPS is the detected stable rate, or -1 while none is found.
	StableTPS       float64
	StableIntervals int

	// LastKnownGoodTPS is the highest rate achieved before the most
	// recent degradation; it seeds recovery and never decreases.
	LastKnownGoodTPS float64

	// InRecovery marks the RampDown sub-condition where the rate sits at
	// MinTPS waiting for conditions to improve.
	InRecovery bool

	PhaseTransitions int64
}

// HasStableTPS reports whether a stable rate has been detected.
func (s State) HasStableTPS() bool { return s.StableTPS >= 0 }

func initialState(cfg Config, elapsed time.Duration) State {
	return State{
		Phase:            PhaseRampUp,
		CurrentTPS:       cfg.InitialTPS,
		LastAdjustment:   elapsed,
		PhaseStart:       elapsed,
		StableTPS:        -1,
		LastKnownGoodTPS: cfg.InitialTPS,
	}
}
