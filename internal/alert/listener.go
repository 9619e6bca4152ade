package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/happysantoo/vajrapulse/internal/pattern/adaptive"
)

// PatternListener turns adaptive pattern events into alerts. Sends run on
// the pattern's dispatcher goroutine with a bounded timeout, so a slow
// webhook can delay later alerts but never the control loop itself.
type PatternListener struct {
	alerter Alerter
	runID   string
	timeout time.Duration
}

// NewPatternListener wraps alerter for run runID.
func NewPatternListener(alerter Alerter, runID string) *PatternListener {
	return &PatternListener{alerter: alerter, runID: runID, timeout: 10 * time.Second}
}

func (l *PatternListener) send(a Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	// MultiAlerter already logs per-channel failures.
	_ = l.alerter.Send(ctx, a)
}

func (l *PatternListener) OnPhaseTransition(e adaptive.PhaseTransitionEvent) {
	l.send(Alert{
		Type:  AlertTypePhaseTransition,
		RunID: l.runID,
		Title: fmt.Sprintf("phase %s -> %s", e.From, e.To),
		Fields: map[string]string{
			"tps": fmt.Sprintf("%.1f", e.TPS),
		},
	})
}

func (l *PatternListener) OnTPSChange(adaptive.TPSChangeEvent) {
	// Rate adjustments happen every interval; alerting on each would
	// drown the channel.
}

func (l *PatternListener) OnStabilityDetected(e adaptive.StabilityDetectedEvent) {
	l.send(Alert{
		Type:  AlertTypeStability,
		RunID: l.runID,
		Title: "stable rate detected",
		Fields: map[string]string{
			"stable_tps": fmt.Sprintf("%.1f", e.StableTPS),
		},
	})
}

func (l *PatternListener) OnRecovery(e adaptive.RecoveryEvent) {
	l.send(Alert{
		Type:  AlertTypeRecovery,
		RunID: l.runID,
		Title: "recovering from rate floor",
		Fields: map[string]string{
			"resumed_tps":     fmt.Sprintf("%.1f", e.CurrentTPS),
			"last_known_good": fmt.Sprintf("%.1f", e.LastKnownGoodTPS),
		},
	})
}
