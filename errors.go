package sampler

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the public Controller surface.
var (
	// ErrPlatformUnsupported is returned by Controller.SetPeriod(ms > 0) and
	// by the timer stub on non-Linux platforms; on Linux it is wrapped when
	// no real-time signal is left for a new thread timer.
	ErrPlatformUnsupported = errors.New("sampler: per-thread CPU-clock timers are not supported on this platform")

	// ErrTimerCreateFailed wraps a platform timer_create failure for a
	// single thread; the thread is simply left unsampled.
	ErrTimerCreateFailed = errors.New("sampler: failed to create per-thread timer")

	// ErrClockUnavailable is returned when a thread's per-thread CPU clock
	// could not be resolved.
	ErrClockUnavailable = errors.New("sampler: per-thread CPU clock unavailable")
)

// debugAssertf panics with a formatted message when built with the
// sampler_debug build tag; it is a no-op otherwise. It exists for the
// handler's thread-state dispatch and the queue conservation invariant,
// both of which spec.md treats as fatal-in-debug-only conditions.
func debugAssertf(format string, args ...any) {
	debugAssert(format, args)
}

// errFromRecover turns a recovered panic value into an error, for use in
// the consumer's crash-protected thread-ID lookup.
func errFromRecover(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("sampler: recovered panic: %w", err)
	}
	return fmt.Errorf("sampler: recovered panic: %v", r)
}
