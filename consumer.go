package sampler

import (
	"runtime"
	"time"
)

// minResolutionBuffer is the minimum free space the consumer requires in
// its resolution buffer before it will reuse it rather than requesting a
// fresh one from the resolver (§4.4's MIN_BUFFER).
const minResolutionBuffer = 64

// maxConsumerBatch bounds a single processFilled call (§4.4's max_batch).
const maxConsumerBatch = 1000

// consumerLoop is the sampler's single dedicated consumer goroutine. It
// reproduces spec.md §4.4 step by step: wait on the enrollment semaphore,
// report accumulated drops, process a batch under crash protection, and
// apply the sleep/yield policy when the queue runs dry.
func (s *Sampler) consumerLoop() {
	defer s.wg.Done()

	var resolveBuf ResolutionBuffer
	lastBatchEmpty := false

	for {
		select {
		case <-s.stop:
			return
		case <-s.enrollSem:
			// Hand the token straight back: this is a wait-then-signal on
			// the enrollment semaphore, so a concurrent Disenroll can take
			// it down between iterations without losing a wakeup.
			select {
			case s.enrollSem <- struct{}{}:
			case <-s.stop:
				return
			}
		}

		periodMillis := s.state.PeriodMillis()
		if periodMillis <= 0 {
			time.Sleep(time.Millisecond)
			continue
		}

		if dropped := s.state.TakeDrop(); dropped > 0 && s.recorder.IsDropEventEnabled() {
			s.recorder.EmitDropEvent(dropped, time.Now())
		}

		s.consumerMu.Lock()
		processed := s.processFilled(maxConsumerBatch, &resolveBuf)
		s.consumerMu.Unlock()

		if processed > 0 {
			lastBatchEmpty = false
			continue
		}

		sleepNanos := periodMillis * 1_000_000 / int64(runtime.NumCPU())
		switch {
		case sleepNanos > 300_000:
			time.Sleep(time.Duration(sleepNanos))
		case lastBatchEmpty:
			runtime.Gosched()
		}
		lastBatchEmpty = true
	}
}

// processFilled dequeues up to n slots from the filled queue, resolves and
// commits each as an event, and returns each slot to the free queue. It
// returns the number of slots processed.
func (s *Sampler) processFilled(n int, resolveBuf *ResolutionBuffer) int {
	processed := 0
	for processed < n {
		slot, ok := s.filled.dequeue()
		if !ok {
			break
		}
		s.processSlot(slot, resolveBuf)
		s.free.enqueue(slot)
		processed++
	}
	return processed
}

func (s *Sampler) processSlot(slot *TraceSlot, resolveBuf *ResolutionBuffer) {
	var stacktraceID uint64
	if slot.Kind != NoSample && slot.FrameCount > 0 {
		if *resolveBuf == nil || (*resolveBuf).Remaining() < minResolutionBuffer {
			*resolveBuf = s.resolver.GetOrRenewBuffer(minResolutionBuffer)
		}
		stacktraceID = s.resolver.Store(slot.Frames[:slot.FrameCount], *resolveBuf)
	}

	start, end := slot.Start, slot.End
	thread := slot.Thread

	threadID, err := s.resolveThreadIDProtected(thread)
	if err != nil {
		if s.diag != nil {
			s.diag.warnf("thread-id", "sampler: dropping event, thread id unavailable: %v", err)
		}
		return
	}

	if s.recorder.IsExecutionSampleEnabled() {
		s.recorder.EmitExecutionSample(threadID, stacktraceID, start, end)
	}
	if s.metrics != nil {
		s.metrics.RecordSample(end.Sub(start))
	}
}

// resolveThreadIDProtected wraps ThreadIDForEvent in panic recovery: the
// sampled thread's backing state may have been deallocated between
// sampling and processing, and Go's only fault-catching primitive over a
// dangling reference is recover() over the resulting panic. Losing one
// event is acceptable; crashing the consumer is not.
func (s *Sampler) resolveThreadIDProtected(t *ThreadHandle) (id uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFromRecover(r)
		}
	}()
	return s.runtime.ThreadIDForEvent(t)
}
