package sampler

import (
	"runtime"
	"sync"
	"time"
)

// wordSize is the pointer size used by the first-enrollment queue-sizing
// formula (§4.6); fixed at 8 for the 64-bit platforms this port targets.
const wordSize = 8

// Controller owns the sampler's lifecycle: enroll/disenroll, period
// updates, and thread-create/terminate hooks. It is the sole public
// entry point into this package; Sampler, the queues, and the timer
// registry are all controller-private.
type Controller struct {
	mu sync.Mutex

	runtime  ManagedRuntime
	resolver Resolver
	recorder EventRecorder
	logger   Logger
	metrics  *Metrics
	diag     *diagnostics
	opts     controllerOptions

	sampler *Sampler
	timers  *timerRegistry

	platformWarnOnce sync.Once
}

// NewController builds a Controller around the given external
// collaborators. The sampler pipeline itself is not created until the
// first SetPeriod(ms) call with ms > 0 (§4.5), so NewController never
// touches the queues, the pool, or any OS timer.
func NewController(rt ManagedRuntime, resolver Resolver, recorder EventRecorder, opts ...Option) *Controller {
	cfg := resolveOptions(opts)
	logger := cfg.logger
	if logger == nil {
		logger = NewZerologLogger(LevelInfo)
	}
	return &Controller{
		runtime:  rt,
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
		metrics:  NewMetrics(),
		diag:     newDiagnostics(logger, cfg.diagnosticRates),
		opts:     cfg,
	}
}

// SetPeriod implements spec.md §4.5. ms > 0 creates the sampler on first
// call (sizing the queues per §4.6), then ensures enrolled and re-arms
// every existing timer on period change; ms == 0 disenrolls. Idempotent
// under concurrent calls.
func (c *Controller) SetPeriod(ms int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ms <= 0 {
		if c.sampler == nil || c.sampler.state.Disenrolled() {
			return nil
		}
		return c.disenrollLocked()
	}

	if !platformSupportsSampling {
		c.platformWarnOnce.Do(func() {
			c.logger.Log(LevelWarn, "platform-unsupported", "sampler: per-thread CPU-clock timers are not supported on this platform; sampling disabled", nil)
		})
		return ErrPlatformUnsupported
	}

	if c.sampler == nil {
		capacity := computeQueueCapacity(ms, c.opts.maxChunkSize, c.opts.maxFrames)
		c.sampler = newSampler(capacity, c.opts.maxFrames, c.runtime, c.resolver, c.recorder, c.logger, c.metrics, c.diag)
		c.timers = newTimerRegistry(c.sampler.handleSignal)
	}

	c.sampler.state.SetPeriodMillis(ms)

	if c.sampler.state.Disenrolled() {
		return c.enrollLocked()
	}

	for _, t := range c.runtime.Threads().Threads() {
		if t.timer != nil {
			if err := c.timers.rearm(t, ms); err != nil {
				c.diag.warnf("timer-rearm", "sampler: failed to re-arm timer for thread %d: %v", t.ID, err)
			}
		}
	}
	return nil
}

// enrollLocked implements spec.md §4.6's Enroll sequence. Caller holds
// c.mu.
func (c *Controller) enrollLocked() error {
	s := c.sampler

	select {
	case s.enrollSem <- struct{}{}:
	default:
	}

	s.state.SetDisenrolled(false)

	periodMillis := s.state.PeriodMillis()
	for _, t := range c.runtime.Threads().Threads() {
		if t.OSTID == 0 {
			continue // OS identity not yet assigned
		}
		if err := c.timers.create(c.runtime, t, periodMillis); err != nil {
			c.diag.warnf("timer-create", "sampler: failed to create timer for thread %d: %v", t.ID, err)
		}
	}
	return nil
}

// disenrollLocked implements spec.md §4.6's Disenroll sequence exactly,
// including the ordering rationale in §9: timers must be deleted before
// the stop-flag is set, or an in-flight signal could still enter the
// handler after teardown appears complete. Caller holds c.mu.
func (c *Controller) disenrollLocked() error {
	s := c.sampler

	// 1. Delete every managed thread's timer; stops new deliveries.
	for _, t := range c.runtime.Threads().Threads() {
		c.timers.destroy(t)
	}

	// 2. Stop any handler that slipped past step 1's race window.
	s.state.SetStopSignals(true)

	// 3. Drain in-flight handlers.
	for s.state.ActiveHandlers() > 0 {
		time.Sleep(time.Microsecond)
	}

	// 4. Take the consumer's enrollment semaphore down.
	select {
	case <-s.enrollSem:
	default:
	}

	// 5. Mark disenrolled and reset both queues.
	s.state.SetDisenrolled(true)
	s.free.reset()
	s.filled.reset()
	for i := 0; i < s.cap(); i++ {
		s.free.enqueue(s.pool.Slot(i))
	}

	// 6. Clear the stop-signals flag.
	s.state.SetStopSignals(false)
	return nil
}

// OnThreadCreate forwards to the timer registry when enrolled, per
// spec.md §4.5. A no-op before the first SetPeriod(ms>0) call, while
// disenrolled, or for a thread whose OS identity is not yet assigned.
func (c *Controller) OnThreadCreate(t *ThreadHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampler == nil || c.sampler.state.Disenrolled() || t.OSTID == 0 {
		return nil
	}
	return c.timers.create(c.runtime, t, c.sampler.state.PeriodMillis())
}

// OnThreadTerminate forwards to the timer registry, clearing t's timer
// handle if one exists. Safe to call whether or not enrolled.
func (c *Controller) OnThreadTerminate(t *ThreadHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timers == nil {
		return
	}
	c.timers.destroy(t)
}

// Destroy disenrolls if necessary and stops the consumer goroutine. The
// Controller must not be used afterward.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampler == nil {
		return
	}
	if !c.sampler.state.Disenrolled() {
		_ = c.disenrollLocked()
	}
	c.sampler.close()
}

// Metrics returns the controller's sample-latency metrics. Queue depths
// are read with QueueDepths; drop counts are not tracked here.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// computeQueueCapacity implements the §4.6 first-enrollment sizing
// formula: clamp(20*NumCPU/(period>9ms?2:1), 80, maxChunkSize/2/wordSize/maxFrames).
//
// The two bounds are applied as min(upperBound, max(lowerBound, target)),
// not as mutually exclusive cases: the upper bound exists to keep one
// consumer iteration inside one output buffer, so it must win whenever it
// conflicts with the lower bound (an unusually small maxChunkSize, or a
// NumCPU/period combination that would otherwise undershoot 80) — silently
// returning a capacity above upperBound would defeat the reason the bound
// exists.
func computeQueueCapacity(periodMillis int64, maxChunkSize, maxFrames int) int {
	divisor := 1
	if periodMillis > 9 {
		divisor = 2
	}
	target := 20 * runtime.NumCPU() / divisor

	upperBound := maxChunkSize / 2 / wordSize / maxFrames
	if upperBound < 1 {
		upperBound = 1
	}

	const lowerBound = 80
	if target < lowerBound {
		target = lowerBound
	}
	if target > upperBound {
		target = upperBound
	}
	if target < 1 {
		target = 1
	}
	return target
}
