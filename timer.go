package sampler

// timerRegistry creates, arms, and destroys the per-thread CPU-clock
// timers that drive the signal path. It holds no state of its own and no
// handle table: each ThreadHandle owns its own *threadTimer directly
// (spec.md §3: "Timer handles are owned by each thread's runtime-local
// record; the sampler retains no separate handle table"), mirroring the
// way the teacher's wakeup/poller files are split per-GOOS while sharing
// the same exported surface.
//
// The platform-specific pieces — threadTimer's fields and
// createThreadTimer/armThreadTimer/destroyThreadTimer — live in
// timer_linux.go (the only platform with the primitives this needs) and
// timer_other.go (a stub for everything else).
type timerRegistry struct {
	onFire func(t *ThreadHandle)
}

func newTimerRegistry(onFire func(t *ThreadHandle)) *timerRegistry {
	return &timerRegistry{onFire: onFire}
}

// create builds and arms a timer for t, bound to its per-thread CPU
// clock, at the given period. Excludes nothing itself — the controller is
// responsible for skipping the compiler-equivalent thread and any thread
// whose OS identity isn't yet assigned.
func (r *timerRegistry) create(rt ManagedRuntime, t *ThreadHandle, periodMillis int64) error {
	clockID, ok := rt.PerThreadCPUClock(t)
	if !ok {
		return ErrClockUnavailable
	}
	tm, err := createThreadTimer(clockID, t.OSTID, func() { r.onFire(t) })
	if err != nil {
		return err
	}
	if err := armThreadTimer(tm, periodMillis); err != nil {
		destroyThreadTimer(tm)
		return err
	}
	t.timer = tm
	return nil
}

// rearm updates an existing timer's period without destroying it.
func (r *timerRegistry) rearm(t *ThreadHandle, periodMillis int64) error {
	if t.timer == nil {
		return nil
	}
	return armThreadTimer(t.timer, periodMillis)
}

// destroy deletes t's timer, if any, and clears its handle.
func (r *timerRegistry) destroy(t *ThreadHandle) {
	if t.timer == nil {
		return
	}
	destroyThreadTimer(t.timer)
	t.timer = nil
}
