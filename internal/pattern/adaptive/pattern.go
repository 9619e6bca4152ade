package adaptive

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Pattern is the adaptive load pattern. It owns the controller state behind
// an atomically swapped immutable snapshot; TPS must be driven with
// monotonically non-decreasing elapsed time from a single logical driver.
// Concurrent readers of the observability getters are always safe.
type Pattern struct {
	cfg          Config
	metrics      MetricsProvider
	backpressure BackpressureProvider
	policy       DecisionPolicy
	logger       *slog.Logger

	state      atomic.Pointer[State]
	dispatcher *dispatcher
	closeOnce  sync.Once
}

// Option configures optional collaborators of the adaptive pattern.
type Option func(*options)

type options struct {
	backpressure BackpressureProvider
	policy       DecisionPolicy
	listeners    []Listener
	logger       *slog.Logger
}

// WithBackpressureProvider wires a downstream-saturation signal into the
// controller's decisions. Without one the backpressure level reads as 0.
func WithBackpressureProvider(p BackpressureProvider) Option {
	return func(o *options) { o.backpressure = p }
}

// WithPolicy overrides the default threshold policy.
func WithPolicy(p DecisionPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithListener registers an event listener. May be given multiple times.
func WithListener(l Listener) Option {
	return func(o *options) { o.listeners = append(o.listeners, l) }
}

// WithLogger sets the logger used for listener isolation and tick logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New validates cfg and builds the pattern. metrics must not be nil.
func New(cfg Config, metrics MetricsProvider, opts ...Option) (*Pattern, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("adaptive config: %w", err)
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics provider must not be nil")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy == nil {
		policy, err := DefaultPolicy(0.01)
		if err != nil {
			return nil, err
		}
		o.policy = policy
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "adaptive_pattern")

	p := &Pattern{
		cfg:          cfg,
		metrics:      metrics,
		backpressure: o.backpressure,
		policy:       o.policy,
		logger:       logger,
		dispatcher:   newDispatcher(o.listeners, logger),
	}
	pending := initialState(cfg, -1)
	p.state.Store(&pending)
	return p, nil
}

// TPS implements pattern.LoadPattern. Each call may tick the control loop:
// once per RampInterval it captures a metrics snapshot, runs the decision
// engine, and atomically replaces the state. Calls inside the same interval
// return the current rate unchanged.
func (p *Pattern) TPS(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 0
	}

	current := p.state.Load()
	if current.LastAdjustment < 0 {
		current = p.initialize(elapsed)
	}

	if p.cfg.InitialRampDuration > 0 {
		if elapsed < p.cfg.InitialRampDuration {
			return p.initialRampTPS(current, elapsed)
		}
		if current.LastAdjustment < p.cfg.InitialRampDuration {
			current = p.finishInitialRamp(current)
		}
	}

	if elapsed-current.LastAdjustment < p.cfg.RampInterval {
		return current.CurrentTPS
	}

	snapshot := captureSnapshot(p.metrics, p.backpressure)
	decision := Decide(*current, snapshot, p.cfg, p.policy, elapsed)
	next := p.apply(*current, decision, snapshot, elapsed)

	if !p.state.CompareAndSwap(current, &next) {
		// A concurrent tick won the swap; its state is authoritative.
		return p.state.Load().CurrentTPS
	}

	p.logger.Debug("adaptive tick",
		"phase", next.Phase.String(),
		"tps", next.CurrentTPS,
		"reason", decision.Reason,
		"stable_intervals", next.StableIntervals,
		"failure_rate", snapshot.FailureRate,
		"backpressure", snapshot.Backpressure,
	)
	p.notify(*current, next)
	return next.CurrentTPS
}

// Duration returns an effectively unbounded duration: the adaptive pattern
// runs until the execution engine stops it.
func (p *Pattern) Duration() time.Duration { return 365 * 24 * time.Hour }

// Close stops the event dispatcher after draining queued events.
func (p *Pattern) Close() {
	p.closeOnce.Do(p.dispatcher.close)
}

func (p *Pattern) initialize(elapsed time.Duration) *State {
	pending := p.state.Load()
	initialized := initialState(p.cfg, elapsed)
	if p.state.CompareAndSwap(pending, &initialized) {
		return &initialized
	}
	return p.state.Load()
}

// initialRampTPS interpolates linearly from MinTPS (floored at 0) to
// InitialTPS without invoking the decision engine. LastAdjustment is left
// untouched so the first real tick fires one RampInterval after the window.
func (p *Pattern) initialRampTPS(current *State, elapsed time.Duration) float64 {
	start := math.Max(0, p.cfg.MinTPS)
	progress := float64(elapsed) / float64(p.cfg.InitialRampDuration)
	tps := start + (p.cfg.InitialTPS-start)*progress

	next := *current
	next.CurrentTPS = tps
	if p.state.CompareAndSwap(current, &next) && math.Abs(tps-current.CurrentTPS) > tpsChangeEpsilon {
		p.dispatcher.emit(TPSChangeEvent{OldTPS: current.CurrentTPS, NewTPS: tps, Phase: PhaseRampUp, Time: time.Now()})
	}
	return tps
}

// finishInitialRamp pins the rate at InitialTPS and freezes LastAdjustment
// at the window's end so ramp intervals are measured from there.
func (p *Pattern) finishInitialRamp(current *State) *State {
	next := *current
	next.CurrentTPS = p.cfg.InitialTPS
	next.LastAdjustment = p.cfg.InitialRampDuration
	if p.state.CompareAndSwap(current, &next) {
		return &next
	}
	return p.state.Load()
}

func (p *Pattern) apply(current State, d Decision, snapshot MetricsSnapshot, elapsed time.Duration) State {
	if d.Phase != current.Phase {
		return p.transition(current, d, elapsed)
	}

	stable := 0
	if p.policy.ShouldRampUp(snapshot) {
		stable = current.StableIntervals + 1
	}
	return State{
		Phase:            current.Phase,
		CurrentTPS:       d.TPS,
		LastAdjustment:   elapsed,
		PhaseStart:       current.PhaseStart,
		StableTPS:        current.StableTPS,
		StableIntervals:  stable,
		LastKnownGoodTPS: updateLastKnownGood(current, current.CurrentTPS, d.TPS),
		InRecovery:       current.Phase == PhaseRampDown && d.TPS <= p.cfg.MinTPS,
		PhaseTransitions: current.PhaseTransitions,
	}
}

func (p *Pattern) transition(current State, d Decision, elapsed time.Duration) State {
	next := State{
		Phase:            d.Phase,
		CurrentTPS:       d.TPS,
		LastAdjustment:   elapsed,
		PhaseStart:       elapsed,
		StableTPS:        current.StableTPS,
		PhaseTransitions: current.PhaseTransitions + 1,
	}
	switch d.Phase {
	case PhaseRampUp:
		if current.InRecovery {
			// Recovery keeps the pre-degradation peak as the seed for
			// the next climb.
			next.LastKnownGoodTPS = current.LastKnownGoodTPS
		} else {
			next.LastKnownGoodTPS = updateLastKnownGood(current, current.CurrentTPS, d.TPS)
		}
	case PhaseRampDown:
		next.LastKnownGoodTPS = updateLastKnownGood(current, current.CurrentTPS, d.TPS)
		next.InRecovery = d.TPS <= p.cfg.MinTPS
	case PhaseSustain:
		next.StableTPS = d.TPS
		next.LastKnownGoodTPS = math.Max(d.TPS, current.LastKnownGoodTPS)
	}
	return next
}

// updateLastKnownGood captures the peak rate reached before degradation:
// taking the pre-decrement rate on the way down, never the lower target.
func updateLastKnownGood(current State, currentTPS, newTPS float64) float64 {
	switch current.Phase {
	case PhaseRampUp:
		return math.Max(math.Max(currentTPS, newTPS), current.LastKnownGoodTPS)
	case PhaseRampDown:
		return math.Max(currentTPS, current.LastKnownGoodTPS)
	default:
		return current.LastKnownGoodTPS
	}
}

func (p *Pattern) notify(old, next State) {
	now := time.Now()
	if old.Phase != next.Phase {
		p.dispatcher.emit(PhaseTransitionEvent{From: old.Phase, To: next.Phase, TPS: next.CurrentTPS, Time: now})
	}
	if math.Abs(next.CurrentTPS-old.CurrentTPS) > tpsChangeEpsilon {
		p.dispatcher.emit(TPSChangeEvent{OldTPS: old.CurrentTPS, NewTPS: next.CurrentTPS, Phase: next.Phase, Time: now})
	}
	if next.Phase == PhaseSustain && next.HasStableTPS() && !old.HasStableTPS() {
		p.dispatcher.emit(StabilityDetectedEvent{StableTPS: next.StableTPS, Time: now})
	}
	if next.InRecovery && !old.InRecovery {
		p.dispatcher.emit(RecoveryEvent{LastKnownGoodTPS: next.LastKnownGoodTPS, CurrentTPS: next.CurrentTPS, Time: now})
	}
}

// CurrentPhase returns the pattern's current phase.
func (p *Pattern) CurrentPhase() Phase { return p.state.Load().Phase }

// CurrentTPS returns the current target rate.
func (p *Pattern) CurrentTPS() float64 { return p.state.Load().CurrentTPS }

// StableTPS returns the detected stable rate, or -1 if none yet.
func (p *Pattern) StableTPS() float64 {
	if s := p.state.Load(); s.HasStableTPS() {
		return s.StableTPS
	}
	return -1
}

// PhaseTransitions returns how many phase changes have occurred.
func (p *Pattern) PhaseTransitions() int64 { return p.state.Load().PhaseTransitions }

// Snapshot returns the current immutable state. Intended for tests and
// status reporting.
func (p *Pattern) Snapshot() State { return *p.state.Load() }
