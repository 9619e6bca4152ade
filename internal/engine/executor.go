package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/happysantoo/vajrapulse/internal/task"
)

// TaskExecutor runs one task iteration and turns whatever happens into a
// Result. Panics inside Execute are contained here: a panicking iteration
// becomes a failed Result instead of taking the whole run down.
type TaskExecutor struct {
	task   task.Task
	tracer trace.Tracer
}

// NewTaskExecutor wraps t. tracer may come from a noop provider.
func NewTaskExecutor(t task.Task, tracer trace.Tracer) *TaskExecutor {
	return &TaskExecutor{task: t, tracer: tracer}
}

// Execute runs iteration i and reports its timed outcome.
func (e *TaskExecutor) Execute(ctx context.Context, iteration int64) task.Result {
	ctx, span := e.tracer.Start(ctx, "task.execute",
		trace.WithAttributes(attribute.Int64("iteration", iteration)))
	defer span.End()

	res := task.Result{
		Iteration: iteration,
		Start:     time.Now(),
	}

	err := e.run(ctx, iteration)
	res.Duration = time.Since(res.Start)

	switch {
	case err == nil:
		res.Outcome = task.OutcomeSuccess
	case isPanicError(err):
		res.Outcome = task.OutcomePanic
		res.Err = err
		res.ErrClass = "panic"
	default:
		res.Outcome = task.OutcomeFailure
		res.Err = err
		res.ErrClass = ClassifyError(err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, res.ErrClass)
	}
	return res
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("task panic: %v", p.value)
}

func isPanicError(err error) bool {
	_, ok := err.(*panicError)
	return ok
}

func (e *TaskExecutor) run(ctx context.Context, iteration int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return e.task.Execute(ctx, iteration)
}

// ClassifyError buckets an execution error into a coarse category for
// the per-class error counter.
func ClassifyError(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "context canceled"):
		return "canceled"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server error"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "network is unreachable") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "task_error"
	}
}
