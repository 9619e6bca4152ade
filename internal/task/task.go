package task

import (
	"context"
	"time"
)

// Task is one unit of load-test work. Init runs once before the first
// execution, Teardown runs exactly once after the last one, even when the
// run ends on an error path. Execute is invoked concurrently from many
// workers and must be safe for that.
type Task interface {
	Init(ctx context.Context) error
	Execute(ctx context.Context, iteration int64) error
	Teardown(ctx context.Context) error
}

// PoolSizer is an optional interface a Task can implement to request a
// fixed-size worker pool instead of unbounded per-dispatch goroutines.
// Returning n <= 0 keeps the engine default.
type PoolSizer interface {
	PoolSize() int
}

// Func adapts a bare function into a Task with no-op Init/Teardown.
type Func func(ctx context.Context, iteration int64) error

func (f Func) Init(context.Context) error     { return nil }
func (f Func) Teardown(context.Context) error { return nil }

func (f Func) Execute(ctx context.Context, iteration int64) error {
	return f(ctx, iteration)
}

// Outcome classifies how a single execution ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePanic   Outcome = "panic"
)

// Result is the timed record of one task execution. Results are data, not
// exceptions: failures flow into metrics and from there into the adaptive
// controller's failure-rate signal.
type Result struct {
	Iteration int64
	Start     time.Time
	Duration  time.Duration
	Outcome   Outcome
	ErrClass  string
	Err       error
}

// Failed reports whether the execution counts against the failure rate.
func (r Result) Failed() bool {
	return r.Outcome != OutcomeSuccess
}
