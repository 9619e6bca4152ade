package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/happysantoo/vajrapulse/internal/task"
)

// windowBuckets bounds how far back RecentFailureRate can look. One
// bucket per second.
const windowBuckets = 120

type bucket struct {
	second   int64
	total    int64
	failures int64
}

// Collector aggregates execution results for a single run. It feeds the
// Prometheus series above and answers the rate queries the adaptive
// pattern asks during its decision ticks. All methods are safe for
// concurrent use.
type Collector struct {
	runID string
	now   func() time.Time

	total    atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	buckets [windowBuckets]bucket
}

// NewCollector returns a collector labeled with runID.
func NewCollector(runID string) *Collector {
	return &Collector{runID: runID, now: time.Now}
}

// Record folds one execution result into the counters, the recent-rate
// window and the Prometheus series.
func (c *Collector) Record(res task.Result) {
	failed := res.Failed()

	c.total.Add(1)
	if failed {
		c.failures.Add(1)
	}

	ExecutionsTotal.WithLabelValues(c.runID, string(res.Outcome)).Inc()
	ExecutionDuration.WithLabelValues(c.runID).Observe(res.Duration.Seconds())
	if failed {
		class := res.ErrClass
		if class == "" {
			class = "unknown"
		}
		ExecutionErrorsTotal.WithLabelValues(c.runID, class).Inc()
	}

	sec := c.now().Unix()
	c.mu.Lock()
	b := &c.buckets[sec%windowBuckets]
	if b.second != sec {
		b.second = sec
		b.total = 0
		b.failures = 0
	}
	b.total++
	if failed {
		b.failures++
	}
	c.mu.Unlock()
}

// TotalExecutions reports the all-time execution count.
func (c *Collector) TotalExecutions() int64 {
	return c.total.Load()
}

// Failures reports the all-time failed execution count.
func (c *Collector) Failures() int64 {
	return c.failures.Load()
}

// FailureRate reports the all-time failure percentage in [0, 100].
func (c *Collector) FailureRate() float64 {
	total := c.total.Load()
	if total == 0 {
		return 0
	}
	return float64(c.failures.Load()) / float64(total) * 100
}

// RecentFailureRate reports the failure percentage over the trailing
// window. When the window holds no samples the all-time rate is
// returned, so a quiet period never reads as a recovery.
func (c *Collector) RecentFailureRate(window time.Duration) float64 {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs > windowBuckets {
		secs = windowBuckets
	}
	nowSec := c.now().Unix()

	var total, failures int64
	c.mu.Lock()
	for i := int64(0); i < secs; i++ {
		b := &c.buckets[(nowSec-i)%windowBuckets]
		if b.second != nowSec-i {
			continue
		}
		total += b.total
		failures += b.failures
	}
	c.mu.Unlock()

	if total == 0 {
		return c.FailureRate()
	}
	return float64(failures) / float64(total) * 100
}
