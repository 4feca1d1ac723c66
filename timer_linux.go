//go:build linux

package sampler

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformSupportsSampling is true on Linux, the only platform with the
// per-thread CPU-clock timer primitives this package needs without cgo.
// Controller.SetPeriod checks this before touching the sampler pipeline at
// all, per spec.md §6's platform-fallback clause.
const platformSupportsSampling = true

// sigevThreadID is SIGEV_THREAD_ID from asm-generic/siginfo.h: target the
// signal at a specific thread rather than the whole process.
const sigevThreadID = 4

// kernelSigevent mirrors struct sigevent's kernel ABI: a sigval union (8
// bytes), signo, notify, then a 48-byte union whose first 4 bytes are the
// target thread ID when Notify == sigevThreadID. Total size 64 bytes,
// matching SIGEV_MAX_SIZE.
type kernelSigevent struct {
	value  int64
	signo  int32
	notify int32
	tid    int32
	_      [44]byte
}

// kernelTimespec mirrors struct timespec.
type kernelTimespec struct {
	Sec  int64
	Nsec int64
}

// kernelItimerspec mirrors struct itimerspec.
type kernelItimerspec struct {
	Interval kernelTimespec
	Value    kernelTimespec
}

// threadTimer holds everything needed to arm and tear down one managed
// thread's per-thread CPU-clock timer: the kernel timer ID from
// timer_create, the dedicated real-time signal it delivers on, and the
// goroutine servicing that signal's notification channel.
type threadTimer struct {
	kernelID int32
	sig      unix.Signal
	notifyCh chan os.Signal
	done     chan struct{}
}

// signalPool hands out dedicated real-time signal numbers to timers.
// Go's os/signal cannot tell us which OS thread a signal originated on,
// so this port gives every timer its own signal number and its own
// signal.Notify channel — demultiplexing happens by signal number, not by
// thread, which keeps correctness even though it bounds the number of
// concurrently-timed threads to the OS's available real-time signal
// range. See SPEC_FULL.md §0 for why a single shared SIGPROF-equivalent
// (the original design) is not reachable from pure Go.
var signalPool = newRTSignalPool()

type rtSignalPool struct {
	mu    sync.Mutex
	free  []unix.Signal
	inUse map[unix.Signal]bool
}

func newRTSignalPool() *rtSignalPool {
	lo, hi := unix.SIGRTMIN(), unix.SIGRTMAX()
	p := &rtSignalPool{inUse: make(map[unix.Signal]bool)}
	// Leave the first and last signal in the range untouched for other
	// consumers in the process (e.g. glibc-internal use of SIGRTMIN).
	for s := lo + 1; s < hi; s++ {
		p.free = append(p.free, unix.Signal(s))
	}
	return p
}

func (p *rtSignalPool) acquire() (unix.Signal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return 0, false
	}
	sig := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse[sig] = true
	return sig, true
}

func (p *rtSignalPool) release(sig unix.Signal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inUse[sig] {
		return
	}
	delete(p.inUse, sig)
	p.free = append(p.free, sig)
}

// createThreadTimer creates a kernel timer bound to clockID, targeting
// osTID via SIGEV_THREAD_ID, and starts the goroutine that services its
// dedicated signal. The timer is created disarmed; call armThreadTimer to
// start it.
func createThreadTimer(clockID int32, osTID int32, onFire func()) (*threadTimer, error) {
	sig, ok := signalPool.acquire()
	if !ok {
		return nil, fmt.Errorf("%w: no free real-time signal for thread %d", ErrPlatformUnsupported, osTID)
	}

	ev := kernelSigevent{
		signo:  int32(sig),
		notify: sigevThreadID,
		tid:    osTID,
	}
	var kernelID int32
	if _, _, errno := unix.Syscall(unix.SYS_TIMER_CREATE,
		uintptr(clockID),
		uintptr(unsafe.Pointer(&ev)),
		uintptr(unsafe.Pointer(&kernelID)),
	); errno != 0 {
		signalPool.release(sig)
		return nil, fmt.Errorf("%w: timer_create: %v", ErrTimerCreateFailed, errno)
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	tm := &threadTimer{
		kernelID: kernelID,
		sig:      sig,
		notifyCh: ch,
		done:     make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-ch:
				onFire()
			case <-tm.done:
				signal.Stop(ch)
				return
			}
		}
	}()

	return tm, nil
}

// armThreadTimer arms (or disarms, if periodMillis <= 0) tm's interval.
func armThreadTimer(tm *threadTimer, periodMillis int64) error {
	var spec kernelItimerspec
	if periodMillis > 0 {
		sec := periodMillis / 1000
		nsec := (periodMillis % 1000) * 1_000_000
		spec.Interval = kernelTimespec{Sec: sec, Nsec: nsec}
		spec.Value = kernelTimespec{Sec: sec, Nsec: nsec}
	}
	if _, _, errno := unix.Syscall6(unix.SYS_TIMER_SETTIME,
		uintptr(tm.kernelID), 0,
		uintptr(unsafe.Pointer(&spec)), 0, 0, 0,
	); errno != 0 {
		return fmt.Errorf("sampler: timer_settime: %w", errno)
	}
	return nil
}

// destroyThreadTimer deletes tm's kernel timer, stops its servicing
// goroutine, and releases its signal number back to the pool.
func destroyThreadTimer(tm *threadTimer) error {
	_, _, errno := unix.Syscall(unix.SYS_TIMER_DELETE, uintptr(tm.kernelID), 0, 0)
	close(tm.done)
	signalPool.release(tm.sig)
	if errno != 0 {
		return fmt.Errorf("sampler: timer_delete: %w", errno)
	}
	return nil
}
