//go:build !linux

package sampler

// platformSupportsSampling is false on every non-Linux platform: Darwin
// has no timer_create and Windows has no per-thread CPU-clock primitive,
// neither reachable without cgo. Controller.SetPeriod(ms > 0) checks this
// before creating the sampler pipeline at all and returns
// ErrPlatformUnsupported instead, per spec.md §6's platform-fallback
// clause: every operation is a genuine no-op here, not "the full pipeline
// minus working timers".
const platformSupportsSampling = false

// threadTimer is an empty stand-in on platforms without per-thread
// CPU-clock timers.
type threadTimer struct{}

func createThreadTimer(clockID int32, osTID int32, onFire func()) (*threadTimer, error) {
	return nil, ErrPlatformUnsupported
}

func armThreadTimer(tm *threadTimer, periodMillis int64) error {
	return ErrPlatformUnsupported
}

func destroyThreadTimer(tm *threadTimer) error {
	return ErrPlatformUnsupported
}
