package sampler

import "sync"

// Sampler is the core sampling pipeline: a trace pool, its free/filled
// queues, the global atomic state, and the single consumer goroutine that
// drains the filled queue. It holds no timer or signal-installation logic
// of its own — that belongs to Controller, which owns a Sampler plus the
// per-thread timer registry and the enroll/disenroll protocol.
type Sampler struct {
	pool      *TracePool
	free      *slotRing
	filled    *slotRing
	state     *samplerState
	runtime   ManagedRuntime
	resolver  Resolver
	recorder  EventRecorder
	logger    Logger
	metrics   *Metrics
	diag      *diagnostics
	maxFrames int

	// enrollSem is the consumer's enrollment semaphore: capacity 1, empty
	// while disenrolled. Enroll sends (non-blocking, since it's always
	// empty first); disenroll receives to take it back down.
	enrollSem chan struct{}

	consumerMu sync.Mutex // crash-protection mutex guarding processFilled

	wg   sync.WaitGroup
	stop chan struct{}
}

// newSampler builds the core pipeline: a pool of the given capacity, two
// queues of the same capacity (free pre-populated, filled empty), and
// launches the consumer goroutine. Capacity and maxFrames are fixed for
// the sampler's lifetime (see Controller's first-enrollment sizing,
// §4.6).
func newSampler(capacity, maxFrames int, rt ManagedRuntime, resolver Resolver, recorder EventRecorder, logger Logger, metrics *Metrics, diag *diagnostics) *Sampler {
	pool := NewTracePool(capacity, maxFrames)
	s := &Sampler{
		pool:      pool,
		free:      newSlotRing(capacity),
		filled:    newSlotRing(capacity),
		state:     newSamplerState(),
		runtime:   rt,
		resolver:  resolver,
		recorder:  recorder,
		logger:    logger,
		metrics:   metrics,
		diag:      diag,
		maxFrames: maxFrames,
		enrollSem: make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		s.free.enqueue(pool.Slot(i))
	}
	s.wg.Add(1)
	go s.consumerLoop()
	return s
}

// cap returns the fixed queue/pool capacity.
func (s *Sampler) cap() int {
	return s.pool.Cap()
}

// close stops the consumer goroutine and waits for it to exit. Called
// once, from Controller.Destroy.
func (s *Sampler) close() {
	close(s.stop)
	s.wg.Wait()
}
