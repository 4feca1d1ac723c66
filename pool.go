package sampler

import "time"

// TraceSlot is one unit of the preallocated trace pool: it holds one raw
// sample end-to-end, from the moment a signal handler claims it from the
// free queue to the moment the consumer returns it.
//
// Invariant: at every instant a TraceSlot is in exactly one of the free
// queue, owned by exactly one signal handler, or the filled queue. Its
// frame buffer is never shared and never reallocated after pool
// construction.
type TraceSlot struct {
	// Index identifies this slot within its owning pool.
	Index int

	// Frames is this slot's preallocated frame buffer, sliced from the
	// pool's single contiguous backing array. Only Frames[:FrameCount] is
	// meaningful.
	Frames []RawFrame

	// FrameCount is the number of frames actually recorded.
	FrameCount int

	// Kind classifies what the walk captured, if anything.
	Kind SampleKind

	// Err is the walk's error classification.
	Err SlotError

	// Start and End are the sample's monotonic timestamps.
	Start, End time.Time

	// Thread is the sampled thread. May dangle by the time the consumer
	// processes the slot — only ThreadIDForEvent reads through it, and
	// always under crash protection.
	Thread *ThreadHandle
}

// reset restores a slot to its pre-capture state, ready for a new handler
// to claim it. Called by the signal path right after acquiring the slot
// from the free queue (§4.2 step 5) — never from the consumer, so it stays
// on the async-signal-safe path (no allocation: Frames is reused in place).
func (s *TraceSlot) reset(now time.Time) {
	s.FrameCount = 0
	s.Kind = NoSample
	s.Err = ErrNoTrace
	s.Start = now
	s.End = now
	s.Thread = nil
}

// TracePool is a fixed set of preallocated trace slots, each owning a
// region of one contiguous frame buffer. It never allocates after
// construction, so the signal path can draw slots from it without risking
// a GC-triggering allocation in async-signal context.
type TracePool struct {
	slots  []TraceSlot
	frames []RawFrame
}

// NewTracePool preallocates cap slots, each with a frame buffer of
// capacity maxFrames, all sliced from one cap*maxFrames backing array.
func NewTracePool(capacity, maxFrames int) *TracePool {
	p := &TracePool{
		slots:  make([]TraceSlot, capacity),
		frames: make([]RawFrame, capacity*maxFrames),
	}
	for i := range p.slots {
		p.slots[i].Index = i
		p.slots[i].Frames = p.frames[i*maxFrames : i*maxFrames : (i+1)*maxFrames]
		p.slots[i].Kind = NoSample
		p.slots[i].Err = ErrNoTrace
	}
	return p
}

// Cap returns the pool's slot capacity.
func (p *TracePool) Cap() int {
	return len(p.slots)
}

// Slot returns the i-th slot. Used only at startup to pre-populate the
// free queue and in tests; the signal/consumer hot paths exchange slots
// exclusively through the queues.
func (p *TracePool) Slot(i int) *TraceSlot {
	return &p.slots[i]
}
