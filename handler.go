package sampler

import "time"

// handleSignal is the sampler's signal path: invoked when thread t's
// per-thread CPU-clock timer has delivered its signal. It implements
// spec.md §4.2's nine-step algorithm exactly.
//
// Contract: strictly async-signal-safe work only — no allocation, no
// mutex, bounded time. In this port it executes on the goroutine that
// owns t (locked to the OS thread the timer targets) the moment the
// dedicated real-time signal arrives on that goroutine's notification
// channel; see timer_linux.go for how delivery is scoped to exactly one
// thread.
func (s *Sampler) handleSignal(t *ThreadHandle) {
	// Step 1: global stop-signals check.
	if s.state.StopSignals() {
		return
	}

	// Step 2: mark this handler in flight for the duration of the call.
	s.state.IncActiveHandlers()
	defer s.state.DecActiveHandlers()

	// Step 3: re-validate via the runtime's safe current-thread accessor.
	current := s.runtime.CurrentThreadIfManagedAndSafe()
	if current == nil {
		return
	}

	// Step 4: acquire a free slot.
	slot, ok := s.free.dequeue()
	if !ok {
		s.state.RecordDrop()
		return
	}

	// Step 5: initialize the slot.
	now := time.Now()
	slot.reset(now)
	slot.Thread = current

	// Step 6: classify and, if eligible, walk.
	if s.runtime.IsDeoptHandlerActive(current) || s.runtime.IsStopTheWorldActive() {
		// Leave kind == NoSample; no walk attempted.
	} else {
		switch st := s.runtime.ThreadState(current); st {
		case ThreadStateManaged:
			s.walkManaged(current, slot)
		case ThreadStateNative:
			s.walkNative(current, slot)
		case ThreadStateTransitional:
			// No walk; kind stays NoSample.
		default:
			debugAssertf("sampler: unrecognized thread state %v in signal handler", st)
		}
	}

	// Step 7: record end time.
	slot.End = time.Now()

	// Step 8: hand off to the filled queue.
	if !s.filled.enqueue(slot) {
		debugAssertf("sampler: filled queue full; free/filled conservation invariant violated")
		s.free.enqueue(slot)
		s.state.RecordDrop()
	}

	// Step 9: defer above decrements active-handlers on every path.
}

// walkManaged handles the "managed frame executing" dispatch branch.
func (s *Sampler) walkManaged(t *ThreadHandle, slot *TraceSlot) {
	slot.Kind = ManagedSample

	top, ok := s.runtime.TopFrameFromSignalContext(t)
	if !ok {
		slot.Err = ErrNoTopframe
		return
	}

	n := s.runtime.AsyncStackWalker(t, top, slot.Frames[:cap(slot.Frames)])
	if n < 0 {
		slot.Err = ErrManagedWalkFailed
		return
	}
	slot.FrameCount = n
	slot.Err = ErrOK
}

// walkNative handles the "in native code" dispatch branch.
func (s *Sampler) walkNative(t *ThreadHandle, slot *TraceSlot) {
	slot.Kind = NativeSample

	frame, hasFrame, hasMethod := s.runtime.LastManagedFrame(t)
	if !hasFrame {
		slot.Err = ErrNoLastManagedFrame
		return
	}

	top, ok := s.runtime.TopFrameFromSignalContext(t)
	if !ok {
		slot.Err = ErrNoTopframe
		return
	}
	_ = top // only its presence is checked; the walk below starts from frame

	if !hasMethod {
		slot.Err = ErrNoTopMethod
		return
	}

	n := s.runtime.AsyncStackWalker(t, frame, slot.Frames[:cap(slot.Frames)])
	if n < 0 {
		slot.Err = ErrNativeWalkFailed
		return
	}
	slot.FrameCount = n
	slot.Err = ErrOK
}
