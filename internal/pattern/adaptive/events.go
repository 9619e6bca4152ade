package adaptive

import (
	"log/slog"
	"time"
)

// PhaseTransitionEvent reports a phase change.
type PhaseTransitionEvent struct {
	From Phase
	To   Phase
	TPS  float64
	Time time.Time
}

// TPSChangeEvent reports a target-rate change beyond the change epsilon.
type TPSChangeEvent struct {
	OldTPS float64
	NewTPS float64
	Phase  Phase
	Time   time.Time
}

// StabilityDetectedEvent fires the first time a stable rate is found.
type StabilityDetectedEvent struct {
	StableTPS float64
	Time      time.Time
}

// RecoveryEvent fires when the pattern enters recovery at the rate floor.
type RecoveryEvent struct {
	LastKnownGoodTPS float64
	CurrentTPS       float64
	Time             time.Time
}

// Listener receives pattern events. Callbacks run on a dedicated dispatcher
// goroutine, never on the control loop; a panicking listener is logged and
// skipped, it cannot abort a tick.
type Listener interface {
	OnPhaseTransition(e PhaseTransitionEvent)
	OnTPSChange(e TPSChangeEvent)
	OnStabilityDetected(e StabilityDetectedEvent)
	OnRecovery(e RecoveryEvent)
}

// tpsChangeEpsilon suppresses change events for sub-milli rate jitter.
const tpsChangeEpsilon = 0.001

// eventBufferSize bounds the dispatch queue. A full queue drops the event
// rather than stalling the control loop.
const eventBufferSize = 64

// dispatcher fans events out to listeners from its own goroutine.
type dispatcher struct {
	listeners []Listener
	events    chan any
	done      chan struct{}
	logger    *slog.Logger
}

func newDispatcher(listeners []Listener, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		listeners: listeners,
		events:    make(chan any, eventBufferSize),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for e := range d.events {
		for _, l := range d.listeners {
			d.deliver(l, e)
		}
	}
}

func (d *dispatcher) deliver(l Listener, e any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("pattern listener panicked", "event", eventName(e), "panic", r)
		}
	}()
	switch ev := e.(type) {
	case PhaseTransitionEvent:
		l.OnPhaseTransition(ev)
	case TPSChangeEvent:
		l.OnTPSChange(ev)
	case StabilityDetectedEvent:
		l.OnStabilityDetected(ev)
	case RecoveryEvent:
		l.OnRecovery(ev)
	}
}

// emit never blocks; the control loop's pacing must not depend on listener
// throughput.
func (d *dispatcher) emit(e any) {
	select {
	case d.events <- e:
	default:
		d.logger.Warn("pattern event dropped, dispatch queue full", "event", eventName(e))
	}
}

// close stops the dispatcher after draining queued events.
func (d *dispatcher) close() {
	close(d.events)
	<-d.done
}

func eventName(e any) string {
	switch e.(type) {
	case PhaseTransitionEvent:
		return "phase_transition"
	case TPSChangeEvent:
		return "tps_change"
	case StabilityDetectedEvent:
		return "stability_detected"
	case RecoveryEvent:
		return "recovery"
	default:
		return "unknown"
	}
}
