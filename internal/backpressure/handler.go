package backpressure

import "fmt"

// Verdict is the handler's decision for one pending dispatch.
type Verdict int

const (
	// Allow dispatches the iteration normally.
	Allow Verdict = iota
	// Drop skips the iteration silently; it does not count as a failure.
	Drop
	// Reject skips the iteration and records it as a failure.
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Drop:
		return "drop"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Context carries the engine-side signals a handler may consult.
type Context struct {
	QueueDepth    int64
	MaxQueueDepth int64
	ErrorRate     float64
}

// Handler decides the fate of one dispatch given the backpressure level.
// Handlers run on the driver, so errors here are configuration bugs and
// panics are allowed to propagate.
type Handler interface {
	Handle(level float64, ctx Context) Verdict
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(level float64, ctx Context) Verdict

func (f HandlerFunc) Handle(level float64, ctx Context) Verdict { return f(level, ctx) }

// AllowAll dispatches regardless of pressure.
var AllowAll Handler = HandlerFunc(func(float64, Context) Verdict { return Allow })

// DropAll sheds every dispatch offered to it.
var DropAll Handler = HandlerFunc(func(float64, Context) Verdict { return Drop })

// RejectAll rejects every dispatch offered to it.
var RejectAll Handler = HandlerFunc(func(float64, Context) Verdict { return Reject })

// ThresholdHandler maps the backpressure level onto verdict bands:
// below allowBelow everything passes, below dropBelow dispatches are
// dropped, and at or above dropBelow they are rejected.
type ThresholdHandler struct {
	allowBelow float64
	dropBelow  float64
}

func NewThresholdHandler(allowBelow, dropBelow float64) (*ThresholdHandler, error) {
	if allowBelow < 0 || allowBelow > 1 {
		return nil, fmt.Errorf("allow threshold must be in [0,1], got %v", allowBelow)
	}
	if dropBelow < 0 || dropBelow > 1 {
		return nil, fmt.Errorf("drop threshold must be in [0,1], got %v", dropBelow)
	}
	if allowBelow >= dropBelow {
		return nil, fmt.Errorf("thresholds must be ascending: allow %v < drop %v", allowBelow, dropBelow)
	}
	return &ThresholdHandler{allowBelow: allowBelow, dropBelow: dropBelow}, nil
}

func (h *ThresholdHandler) Handle(level float64, _ Context) Verdict {
	switch {
	case level < h.allowBelow:
		return Allow
	case level < h.dropBelow:
		return Drop
	default:
		return Reject
	}
}
