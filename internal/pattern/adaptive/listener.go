package adaptive

import "log/slog"

// LoggingListener logs every pattern event through slog.
type LoggingListener struct {
	logger *slog.Logger
}

func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingListener{logger: logger.With("component", "adaptive_events")}
}

func (l *LoggingListener) OnPhaseTransition(e PhaseTransitionEvent) {
	l.logger.Info("phase transition", "from", e.From.String(), "to", e.To.String(), "tps", e.TPS)
}

func (l *LoggingListener) OnTPSChange(e TPSChangeEvent) {
	l.logger.Info("target tps changed", "old", e.OldTPS, "new", e.NewTPS, "phase", e.Phase.String())
}

func (l *LoggingListener) OnStabilityDetected(e StabilityDetectedEvent) {
	l.logger.Info("stable tps detected", "stable_tps", e.StableTPS)
}

func (l *LoggingListener) OnRecovery(e RecoveryEvent) {
	l.logger.Warn("entering recovery at rate floor",
		"last_known_good_tps", e.LastKnownGoodTPS,
		"current_tps", e.CurrentTPS,
	)
}
