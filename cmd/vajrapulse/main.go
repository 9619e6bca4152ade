package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/happysantoo/vajrapulse/internal/admin"
	"github.com/happysantoo/vajrapulse/internal/alert"
	"github.com/happysantoo/vajrapulse/internal/backpressure"
	"github.com/happysantoo/vajrapulse/internal/config"
	"github.com/happysantoo/vajrapulse/internal/engine"
	"github.com/happysantoo/vajrapulse/internal/metrics"
	"github.com/happysantoo/vajrapulse/internal/pattern"
	"github.com/happysantoo/vajrapulse/internal/pattern/adaptive"
	"github.com/happysantoo/vajrapulse/internal/task"
	"github.com/happysantoo/vajrapulse/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger.Info("starting vajrapulse",
		"run_id", runID,
		"scenario_file", cfg.Run.ScenarioFile,
		"admin_port", cfg.Server.AdminPort,
	)

	shutdownTracing, err := tracing.Init(context.Background(), runID,
		cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	collector := metrics.NewCollector(runID)
	alerter := buildAlerter(cfg.Alert, logger)

	// The engine is built before the pattern so the pattern's
	// backpressure provider can read its pending-execution depth.
	var eng *engine.Engine

	scenarioName, loadPattern, closePattern, err := buildPattern(cfg, runID, collector, alerter, logger,
		func() int64 {
			if eng == nil {
				return 0
			}
			return eng.Pending()
		})
	if err != nil {
		return err
	}
	defer closePattern()

	handler, err := backpressure.NewThresholdHandler(0.7, 0.9)
	if err != nil {
		return fmt.Errorf("build backpressure handler: %w", err)
	}

	eng = engine.New(demoTask(), loadPattern, collector,
		engine.WithRunID(runID),
		engine.WithEngineLogger(logger),
		engine.WithTracer(tracing.Tracer("vajrapulse")),
		engine.WithBackpressure(handler, nil),
		engine.WithMaxPending(int64(cfg.Run.MaxPending)),
		engine.WithPoolSize(cfg.Run.PoolSize),
		engine.WithDrainTimeout(cfg.Run.DrainTimeout),
		engine.WithForceTimeout(cfg.Run.ForceTimeout),
	)

	start := time.Now()
	statusProvider := buildStatusProvider(runID, scenarioName, start, eng, collector, loadPattern)
	adminSrv := admin.NewServer(cfg.Server.AdminPort, statusProvider, eng.Stop, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return adminSrv.Run(gCtx)
	})
	g.Go(func() error {
		defer stop() // run finished, release the admin server
		return eng.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	sendRunFinished(alerter, runID, collector)
	logger.Info("vajrapulse finished", "run_id", runID)
	return nil
}

// buildPattern resolves the scenario into a load pattern. The returned
// close func tears down pattern-internal goroutines, if any.
func buildPattern(
	cfg *config.Config,
	runID string,
	collector *metrics.Collector,
	alerter alert.Alerter,
	logger *slog.Logger,
	pendingDepth func() int64,
) (string, pattern.LoadPattern, func(), error) {
	noop := func() {}

	if cfg.Run.ScenarioFile == "" {
		// No scenario given: short static smoke run.
		p, err := pattern.NewStatic(10, 30*time.Second)
		if err != nil {
			return "", nil, nil, err
		}
		return "default-static", p, noop, nil
	}

	sc, err := config.ScenarioFromFile(cfg.Run.ScenarioFile)
	if err != nil {
		return "", nil, nil, err
	}

	if sc.Kind != "adaptive" {
		p, err := sc.BuildPattern()
		if err != nil {
			return "", nil, nil, err
		}
		return sc.Name, p, noop, nil
	}

	if sc.Adaptive == nil {
		return "", nil, nil, fmt.Errorf("scenario kind adaptive: missing adaptive section")
	}

	queueProvider, err := backpressure.NewQueueProvider(pendingDepth, int64(cfg.Run.MaxPending))
	if err != nil {
		return "", nil, nil, err
	}
	policy, err := adaptive.NewThresholdPolicy(
		cfg.Adaptive.ErrorThreshold,
		cfg.Adaptive.BackpressureLow,
		cfg.Adaptive.BackpressureHigh,
	)
	if err != nil {
		return "", nil, nil, fmt.Errorf("build decision policy: %w", err)
	}

	p, err := adaptive.New(sc.Adaptive.AdaptiveConfig(), collector,
		adaptive.WithBackpressureProvider(queueProvider),
		adaptive.WithPolicy(policy),
		adaptive.WithLogger(logger),
		adaptive.WithListener(adaptive.NewLoggingListener(logger)),
		adaptive.WithListener(metrics.NewAdaptiveListener(runID)),
		adaptive.WithListener(alert.NewPatternListener(alerter, runID)),
	)
	if err != nil {
		return "", nil, nil, fmt.Errorf("build adaptive pattern: %w", err)
	}
	return sc.Name, p, p.Close, nil
}

func buildAlerter(cfg config.AlertConfig, logger *slog.Logger) alert.Alerter {
	if cfg.WebhookURL == "" {
		return &alert.NoopAlerter{}
	}
	return alert.NewMultiAlerter(cfg.Cooldown, logger,
		alert.NewWebhookAlerter(cfg.WebhookURL))
}

func buildStatusProvider(
	runID, scenario string,
	start time.Time,
	eng *engine.Engine,
	collector *metrics.Collector,
	p pattern.LoadPattern,
) admin.StatusProvider {
	return admin.StatusFunc(func() admin.Status {
		st := admin.Status{
			RunID:          runID,
			Scenario:       scenario,
			ElapsedSeconds: time.Since(start).Seconds(),
			Executions:     collector.TotalExecutions(),
			Failures:       collector.Failures(),
			FailureRatePct: collector.FailureRate(),
			Pending:        eng.Pending(),
			Dropped:        eng.Dropped(),
			Rejected:       eng.Rejected(),
			StableTPS:      -1,
		}
		if ap, ok := p.(*adaptive.Pattern); ok {
			st.Phase = ap.CurrentPhase().String()
			st.CurrentTPS = ap.CurrentTPS()
			st.StableTPS = ap.StableTPS()
			st.PhaseTransitions = ap.PhaseTransitions()
		} else {
			st.CurrentTPS = p.TPS(time.Since(start))
		}
		return st
	})
}

func sendRunFinished(alerter alert.Alerter, runID string, collector *metrics.Collector) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = alerter.Send(ctx, alert.Alert{
		Type:  alert.AlertTypeRunFinished,
		RunID: runID,
		Title: "load test finished",
		Fields: map[string]string{
			"executions":       fmt.Sprintf("%d", collector.TotalExecutions()),
			"failures":         fmt.Sprintf("%d", collector.Failures()),
			"failure_rate_pct": fmt.Sprintf("%.2f", collector.FailureRate()),
		},
	})
}

// demoTask simulates a downstream dependency with jittered latency and a
// small failure rate. Replace with a real task for actual load tests.
func demoTask() task.Task {
	return task.Func(func(ctx context.Context, _ int64) error {
		delay := time.Duration(1+rand.Intn(20)) * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if rand.Float64() < 0.005 {
			return fmt.Errorf("simulated downstream error")
		}
		return nil
	})
}
