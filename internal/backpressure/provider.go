// Package backpressure normalizes downstream saturation into a 0-1 signal
// and decides what to do with a dispatch when the signal is high.
package backpressure

import "fmt"

// Provider supplies a normalized backpressure level in [0,1].
type Provider interface {
	BackpressureLevel() float64
}

// QueueProvider derives backpressure from a queue-depth reading against a
// fixed capacity: depth/max, clamped to [0,1].
type QueueProvider struct {
	depth func() int64
	max   int64
}

func NewQueueProvider(depth func() int64, maxDepth int64) (*QueueProvider, error) {
	if depth == nil {
		return nil, fmt.Errorf("queue depth func must not be nil")
	}
	if maxDepth <= 0 {
		return nil, fmt.Errorf("max queue depth must be positive, got %d", maxDepth)
	}
	return &QueueProvider{depth: depth, max: maxDepth}, nil
}

func (q *QueueProvider) BackpressureLevel() float64 {
	d := q.depth()
	if d <= 0 {
		return 0
	}
	level := float64(d) / float64(q.max)
	if level > 1 {
		return 1
	}
	return level
}

// Composite reports the highest level among its providers, so any single
// saturated resource dominates the signal.
type Composite struct {
	providers []Provider
}

func NewComposite(providers ...Provider) *Composite {
	return &Composite{providers: providers}
}

func (c *Composite) BackpressureLevel() float64 {
	var level float64
	for _, p := range c.providers {
		if l := p.BackpressureLevel(); l > level {
			level = l
		}
	}
	return level
}
