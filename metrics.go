package sampler

import (
	"sync"
	"time"

	"github.com/joeycumines/threadsampler/internal/psquare"
)

// Metrics tracks sample-processing latency percentiles and throughput for
// a Controller. It is entirely optional observability: nothing in the
// signal path or the queues depends on it, matching the teacher's own
// metrics.go, which the event loop can run without.
type Metrics struct {
	mu      sync.Mutex
	latency *psquare.MultiQuantile
	samples uint64
	started time.Time
}

// latencyPercentiles are the percentiles tracked for per-sample
// start-to-end duration.
var latencyPercentiles = []float64{0.5, 0.9, 0.99}

// NewMetrics creates an empty Metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		latency: psquare.NewMultiQuantile(latencyPercentiles...),
		started: time.Now(),
	}
}

// RecordSample records one committed sample's start-to-end duration.
func (m *Metrics) RecordSample(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency.Update(float64(d.Nanoseconds()))
	m.samples++
}

// LatencySnapshot is a point-in-time read of the tracked latency
// percentiles, in nanoseconds.
type LatencySnapshot struct {
	P50, P90, P99 float64
	Count         uint64
	Mean          float64
	Max           float64
}

// Snapshot returns the current latency distribution and sample count.
func (m *Metrics) Snapshot() LatencySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LatencySnapshot{
		P50:   m.latency.Quantile(0),
		P90:   m.latency.Quantile(1),
		P99:   m.latency.Quantile(2),
		Count: m.samples,
		Mean:  m.latency.Mean(),
		Max:   m.latency.Max(),
	}
}

// QueueDepths is a point-in-time read of both queues' occupancy, for
// dashboards and the conservation-invariant test.
type QueueDepths struct {
	Free, Filled, Capacity int
}

// QueueDepths returns the current free/filled queue occupancy. Returns
// the zero value if the sampler has not yet been created (SetPeriod never
// called with ms > 0).
func (c *Controller) QueueDepths() QueueDepths {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampler == nil {
		return QueueDepths{}
	}
	return QueueDepths{
		Free:     c.sampler.free.len(),
		Filled:   c.sampler.filled.len(),
		Capacity: c.sampler.cap(),
	}
}
