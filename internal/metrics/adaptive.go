package metrics

import (
	"github.com/happysantoo/vajrapulse/internal/pattern/adaptive"
)

// AdaptiveListener mirrors adaptive pattern events into the Prometheus
// pattern series. Register it on the pattern at construction time.
type AdaptiveListener struct {
	runID string
}

// NewAdaptiveListener returns a listener labeled with runID.
func NewAdaptiveListener(runID string) *AdaptiveListener {
	return &AdaptiveListener{runID: runID}
}

func (l *AdaptiveListener) OnPhaseTransition(ev adaptive.PhaseTransitionEvent) {
	PatternPhase.WithLabelValues(l.runID).Set(float64(ev.To))
	PatternPhaseTransitions.WithLabelValues(l.runID).Inc()
}

func (l *AdaptiveListener) OnTPSChange(ev adaptive.TPSChangeEvent) {
	PatternCurrentTPS.WithLabelValues(l.runID).Set(ev.NewTPS)
}

func (l *AdaptiveListener) OnStabilityDetected(ev adaptive.StabilityDetectedEvent) {
	PatternStableTPS.WithLabelValues(l.runID).Set(ev.StableTPS)
}

func (l *AdaptiveListener) OnRecovery(ev adaptive.RecoveryEvent) {
	PatternCurrentTPS.WithLabelValues(l.runID).Set(ev.CurrentTPS)
}
