//go:build !linux

package sampler

// perThreadCPUClock: no per-thread CPU-clock primitive exists on this
// platform without cgo.
func perThreadCPUClock(osTID int32) (int32, bool) {
	return 0, false
}

// currentOSThreadID: no real OS thread ID is available without cgo on this
// platform; 0 keeps RegisterCurrentOSThread's handle ineligible for a real
// timer, same as the plain Register path.
func currentOSThreadID() int32 {
	return 0
}
