package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/happysantoo/vajrapulse/internal/backpressure"
	"github.com/happysantoo/vajrapulse/internal/metrics"
	"github.com/happysantoo/vajrapulse/internal/pattern"
	"github.com/happysantoo/vajrapulse/internal/task"
)

const (
	defaultDrainTimeout = 5 * time.Second
	defaultForceTimeout = 2 * time.Second
	defaultMaxPending   = 10_000
)

// metricsGate is implemented by patterns that carve the run into phases
// where results should not count, such as warmup and cooldown.
type metricsGate interface {
	ShouldRecordMetrics(elapsed time.Duration) bool
}

// Engine drives one load-test run: init the task once, pace dispatches
// against the load pattern, fan executions out to workers, and shut the
// pool down in two stages before running teardown exactly once. The
// engine, not the pattern, decides when the run stops; the adaptive
// pattern reports an effectively unbounded duration and relies on this.
type Engine struct {
	task      task.Task
	pattern   pattern.LoadPattern
	collector *metrics.Collector
	runID     string
	logger    *slog.Logger
	tracer    trace.Tracer

	handler    backpressure.Handler
	provider   backpressure.Provider
	maxPending int64

	poolSize     int
	drainTimeout time.Duration
	forceTimeout time.Duration

	pending  atomic.Int64
	dropped  atomic.Int64
	rejected atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunID overrides the generated run ID, used to correlate metrics,
// traces and logs across a distributed run.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithEngineLogger sets the logger. Defaults to slog.Default.
func WithEngineLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer sets the tracer used for per-execution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithBackpressure installs a handler consulted before every dispatch.
// provider may be nil, in which case the engine derives the level from
// its own pending-execution count against maxPending.
func WithBackpressure(handler backpressure.Handler, provider backpressure.Provider) Option {
	return func(e *Engine) {
		e.handler = handler
		e.provider = provider
	}
}

// WithMaxPending sets the pending-execution count treated as full when
// the engine derives its own backpressure level.
func WithMaxPending(n int64) Option {
	return func(e *Engine) { e.maxPending = n }
}

// WithPoolSize forces a fixed worker pool of n goroutines. Zero keeps
// the default strategy: unbounded dispatch, or the size the task asks
// for via its PoolSize hint.
func WithPoolSize(n int) Option {
	return func(e *Engine) { e.poolSize = n }
}

// WithDrainTimeout bounds the graceful stage of shutdown.
func WithDrainTimeout(d time.Duration) Option {
	return func(e *Engine) { e.drainTimeout = d }
}

// WithForceTimeout bounds how long the engine waits for workers after
// force-canceling them.
func WithForceTimeout(d time.Duration) Option {
	return func(e *Engine) { e.forceTimeout = d }
}

// New assembles an engine for one run of t under p, recording into c.
func New(t task.Task, p pattern.LoadPattern, c *metrics.Collector, opts ...Option) *Engine {
	e := &Engine{
		task:         t,
		pattern:      p,
		collector:    c,
		runID:        uuid.NewString(),
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer("engine"),
		maxPending:   defaultMaxPending,
		drainTimeout: defaultDrainTimeout,
		forceTimeout: defaultForceTimeout,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.poolSize == 0 {
		if sizer, ok := t.(task.PoolSizer); ok {
			e.poolSize = sizer.PoolSize()
		}
	}
	e.logger = e.logger.With("component", "engine", "run_id", e.runID)
	return e
}

// RunID returns the identifier correlating this run's metrics and logs.
func (e *Engine) RunID() string { return e.runID }

// Pending returns the number of dispatched executions not yet finished.
func (e *Engine) Pending() int64 { return e.pending.Load() }

// Dropped returns the number of dispatches shed by backpressure.
func (e *Engine) Dropped() int64 { return e.dropped.Load() }

// Rejected returns the number of dispatches rejected by backpressure.
func (e *Engine) Rejected() int64 { return e.rejected.Load() }

// Stop requests a graceful early stop. No new iterations are scheduled
// after the current pacing-loop iteration; in-flight ones drain. Safe to
// call more than once and from any goroutine.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.logger.Info("stop requested")
		close(e.stopCh)
	})
}

// Run executes the load test until the pattern duration elapses, Stop is
// called, or ctx is canceled. It returns the init error verbatim when
// initialization fails; teardown does not run in that case.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("starting load test",
		"duration", e.pattern.Duration(),
		"pool_size", e.poolSize)

	if err := e.task.Init(ctx); err != nil {
		return fmt.Errorf("task init: %w", err)
	}
	defer e.teardown()

	// Workers outlive ctx so in-flight iterations can drain after a
	// cancel; forceCancel is the second shutdown stage.
	workerCtx, forceCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer forceCancel()

	executor := NewTaskExecutor(e.task, e.tracer)
	dispatch, waitWorkers := e.startWorkers(workerCtx, executor)

	start := time.Now()
	e.loop(ctx, start, dispatch)

	e.shutdownWorkers(waitWorkers, forceCancel)
	e.logger.Info("run finished",
		"elapsed", time.Since(start),
		"executions", e.collector.TotalExecutions(),
		"failures", e.collector.Failures(),
		"dropped", e.dropped.Load(),
		"rejected", e.rejected.Load())
	return nil
}

func (e *Engine) loop(ctx context.Context, start time.Time, dispatch func(job)) {
	rc := NewRateController(e.pattern.TPS(0))
	runDuration := e.pattern.Duration()
	gate, hasGate := e.pattern.(metricsGate)

	var iteration int64
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("context canceled, draining workers")
			return
		case <-e.stopCh:
			e.logger.Info("stop requested, draining workers")
			return
		default:
		}

		elapsed := time.Since(start)
		if elapsed >= runDuration {
			e.logger.Info("test duration completed")
			return
		}

		tps := e.pattern.TPS(elapsed)
		metrics.PatternCurrentTPS.WithLabelValues(e.runID).Set(tps)

		granted, err := rc.Wait(ctx, tps)
		if err != nil {
			e.logger.Info("context canceled while pacing, draining workers")
			return
		}
		if !granted {
			continue
		}

		if e.handler != nil && !e.admit() {
			continue
		}

		// Warmup and cooldown iterations still run, they just stay out
		// of the failure-rate signal.
		record := !hasGate || gate.ShouldRecordMetrics(elapsed)

		it := iteration
		iteration++
		e.pending.Add(1)
		metrics.PendingExecutions.WithLabelValues(e.runID).Set(float64(e.pending.Load()))
		dispatch(job{iteration: it, record: record})
	}
}

// admit applies the backpressure verdict for one dispatch. It returns
// false when the dispatch should be skipped.
func (e *Engine) admit() bool {
	level := e.level()
	metrics.BackpressureLevel.WithLabelValues(e.runID).Set(level)

	verdict := e.handler.Handle(level, backpressure.Context{
		QueueDepth:    e.pending.Load(),
		MaxQueueDepth: e.maxPending,
		ErrorRate:     e.collector.FailureRate() / 100,
	})
	switch verdict {
	case backpressure.Drop:
		e.dropped.Add(1)
		metrics.DispatchesDropped.WithLabelValues(e.runID).Inc()
		return false
	case backpressure.Reject:
		e.rejected.Add(1)
		metrics.DispatchesRejected.WithLabelValues(e.runID).Inc()
		e.logger.Warn("dispatch rejected by backpressure", "level", level)
		return false
	default:
		return true
	}
}

func (e *Engine) level() float64 {
	if e.provider != nil {
		return e.provider.BackpressureLevel()
	}
	if e.maxPending <= 0 {
		return 0
	}
	level := float64(e.pending.Load()) / float64(e.maxPending)
	return min(max(level, 0), 1)
}

// job is one dispatched iteration. record is false for warmup and
// cooldown iterations, which run but stay out of the metrics.
type job struct {
	iteration int64
	record    bool
}

// startWorkers picks the execution strategy and returns a dispatch
// function plus a wait function that blocks until all workers finish.
func (e *Engine) startWorkers(ctx context.Context, executor *TaskExecutor) (func(job), func()) {
	if e.poolSize > 0 {
		return e.startPool(ctx, executor)
	}

	var wg sync.WaitGroup
	dispatch := func(j job) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.execute(ctx, executor, j)
		}()
	}
	return dispatch, wg.Wait
}

func (e *Engine) startPool(ctx context.Context, executor *TaskExecutor) (func(job), func()) {
	jobs := make(chan job, e.poolSize*2)
	g := &errgroup.Group{}
	for i := 0; i < e.poolSize; i++ {
		g.Go(func() error {
			for j := range jobs {
				e.execute(ctx, executor, j)
			}
			return nil
		})
	}

	var closeOnce sync.Once
	dispatch := func(j job) {
		select {
		case jobs <- j:
		case <-ctx.Done():
			// Force-cancel while the queue is full: surrender the slot.
			e.pending.Add(-1)
		}
	}
	wait := func() {
		closeOnce.Do(func() { close(jobs) })
		_ = g.Wait()
	}
	return dispatch, wait
}

func (e *Engine) execute(ctx context.Context, executor *TaskExecutor, j job) {
	res := executor.Execute(ctx, j.iteration)

	e.pending.Add(-1)
	metrics.PendingExecutions.WithLabelValues(e.runID).Set(float64(e.pending.Load()))
	if j.record {
		e.collector.Record(res)
	}
	if res.Failed() {
		e.logger.Debug("execution failed",
			"iteration", j.iteration,
			"outcome", string(res.Outcome),
			"class", res.ErrClass,
			"error", res.Err)
	}
}

// shutdownWorkers drains in-flight work up to drainTimeout, then
// force-cancels and waits up to forceTimeout more.
func (e *Engine) shutdownWorkers(wait func(), forceCancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("workers drained gracefully")
		return
	case <-time.After(e.drainTimeout):
		e.logger.Warn("drain timeout exceeded, force-canceling workers",
			"pending", e.pending.Load())
		forceCancel()
	}

	select {
	case <-done:
		e.logger.Info("workers stopped after force-cancel")
	case <-time.After(e.forceTimeout):
		e.logger.Error("workers still running after force-cancel",
			"pending", e.pending.Load())
	}
}

// teardown runs task teardown with a fresh bounded context so cleanup
// still happens after a canceled run.
func (e *Engine) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.task.Teardown(ctx); err != nil {
		e.logger.Error("task teardown failed", "error", err)
		return
	}
	e.logger.Info("task teardown completed")
}
