//go:build linux

package sampler

import "golang.org/x/sys/unix"

// perThreadCPUClock computes the clock ID for a thread's per-thread CPU
// clock from its OS thread ID, using the kernel's own encoding (the same
// derivation glibc's pthread_getcpuclockid performs): clockid =
// ((~tid) << 3) | CPUCLOCK_PERTHREAD_BIT, with CPUCLOCK_PERTHREAD_BIT = 4
// and CPUCLOCK_SCHED = 2 folded into that same low nibble.
func perThreadCPUClock(osTID int32) (int32, bool) {
	if osTID <= 0 {
		return 0, false
	}
	const cpuClockPerThreadBit = 4
	const cpuClockSched = 2
	clockID := int32((^uint32(osTID) << 3) | cpuClockPerThreadBit | cpuClockSched)
	return clockID, true
}

// currentOSThreadID returns the calling goroutine's real Linux thread ID
// (gettid), used by GoroutineRuntime.RegisterCurrentOSThread to bind a
// ThreadHandle to an OS identity a real per-thread timer can target.
func currentOSThreadID() int32 {
	return int32(unix.Gettid())
}
