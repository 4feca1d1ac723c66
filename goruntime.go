package sampler

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// GoroutineRuntime is a demo/test ManagedRuntime built on real Go
// primitives: a registry of goroutines that have opted in to being
// sampled, runtime.Callers for frame capture, and the teacher's own
// stack-parsing trick (see getGoroutineID) for identifying which
// goroutine is calling in.
//
// It exists so the full pipeline is exercisable end to end without a real
// JVM-style managed runtime. It is not required for production use — the
// pool, queues, signal handler, timer registry, consumer, and controller
// never import it.
//
// Cooperative frame capture. Go cannot capture another goroutine's stack
// from async-signal context (there is no such context reachable without
// cgo — see SPEC_FULL.md §0). GoroutineRuntime therefore asks the sampled
// goroutine itself to periodically call RecordFrame, which snapshots its
// own call stack via runtime.Callers; TopFrameFromSignalContext and
// AsyncStackWalker serve that cached snapshot rather than performing a
// true live capture. This is an accepted simplification for the demo
// adapter only, not a claim about production async-signal-safety.
type GoroutineRuntime struct {
	mu       sync.RWMutex
	byID     map[uint64]*threadRecord
	byGID    map[uint64]*ThreadHandle
	nextID   atomic.Uint64
	nextOSID atomic.Int32
	stw      atomic.Bool
}

type threadRecord struct {
	handle       *ThreadHandle
	goroutineID  uint64
	state        ThreadState
	exiting      bool
	hidden       bool
	excluded     bool
	deopt        bool
	frames       []RawFrame
	hasLastFrame bool
	lastFrame    RawFrame
}

// NewGoroutineRuntime creates an empty registry.
func NewGoroutineRuntime() *GoroutineRuntime {
	return &GoroutineRuntime{
		byID:  make(map[uint64]*threadRecord),
		byGID: make(map[uint64]*ThreadHandle),
	}
}

// Register enrolls the calling goroutine as a managed thread. It must be
// called from the goroutine that will subsequently call RecordFrame — the
// identity lookup in CurrentThreadIfManagedAndSafe keys off the calling
// goroutine's ID.
func (rt *GoroutineRuntime) Register() *ThreadHandle {
	gid := getGoroutineID()
	h := &ThreadHandle{
		ID: rt.nextID.Add(1),
	}
	rec := &threadRecord{handle: h, goroutineID: gid, state: ThreadStateManaged}

	rt.mu.Lock()
	rt.byID[h.ID] = rec
	rt.byGID[gid] = h
	rt.mu.Unlock()
	return h
}

// RegisterCurrentOSThread enrolls the calling goroutine as a managed
// thread, locking it to its current OS thread via runtime.LockOSThread and
// binding the handle to that thread's real OS ID (via currentOSThreadID,
// Linux's gettid). Unlike Register, a handle from this method is eligible
// for a genuine per-thread CPU-clock timer (timer_linux.go), so it is what
// any non-Go-signal-context scenario should use; Register
// remains for tests that deliberately keep OSTID == 0 to avoid touching
// real kernel timers. The registering goroutine, not Unregister, is
// responsible for calling runtime.UnlockOSThread before it exits —
// UnlockOSThread only affects the calling goroutine's own lock count, so
// Unregister (typically called from the controller's goroutine) cannot do
// it on the worker's behalf.
func (rt *GoroutineRuntime) RegisterCurrentOSThread() *ThreadHandle {
	runtime.LockOSThread()
	gid := getGoroutineID()
	h := &ThreadHandle{
		ID:    rt.nextID.Add(1),
		OSTID: currentOSThreadID(),
	}
	rec := &threadRecord{handle: h, goroutineID: gid, state: ThreadStateManaged}

	rt.mu.Lock()
	rt.byID[h.ID] = rec
	rt.byGID[gid] = h
	rt.mu.Unlock()
	return h
}

// Unregister marks t as exiting and removes it from the registry. Safe to
// call once the caller has already stopped sampling t (e.g. after
// Controller.OnThreadTerminate).
func (rt *GoroutineRuntime) Unregister(t *ThreadHandle) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rec, ok := rt.byID[t.ID]; ok {
		rec.exiting = true
		delete(rt.byGID, rec.goroutineID)
		delete(rt.byID, t.ID)
	}
}

// RecordFrame snapshots the calling goroutine's current call stack as the
// frame data the sampler will see for it. Intended to be called
// periodically by whatever workload Register()'d the goroutine.
func (rt *GoroutineRuntime) RecordFrame(t *ThreadHandle) {
	var pcs [64]uintptr
	n := runtime.Callers(2, pcs[:])

	frames := make([]RawFrame, n)
	for i := 0; i < n; i++ {
		frames[i] = RawFrame{Method: MethodHandle(pcs[i]), PC: pcs[i]}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rec, ok := rt.byID[t.ID]
	if !ok {
		return
	}
	rec.frames = frames
	if n > 0 {
		rec.lastFrame = frames[0]
		rec.hasLastFrame = true
	}
}

// SetState overrides t's reported thread state (default
// ThreadStateManaged after Register).
func (rt *GoroutineRuntime) SetState(t *ThreadHandle, state ThreadState) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rec, ok := rt.byID[t.ID]; ok {
		rec.state = state
	}
}

// SetDeoptActive marks t as inside (or outside) a deoptimization handler.
func (rt *GoroutineRuntime) SetDeoptActive(t *ThreadHandle, active bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rec, ok := rt.byID[t.ID]; ok {
		rec.deopt = active
	}
}

// SetHidden marks t hidden from external sampling view.
func (rt *GoroutineRuntime) SetHidden(t *ThreadHandle, hidden bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rec, ok := rt.byID[t.ID]; ok {
		rec.hidden = hidden
	}
}

// SetExcluded marks t excluded from sampling (e.g. the compiler-equivalent
// thread).
func (rt *GoroutineRuntime) SetExcluded(t *ThreadHandle, excluded bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rec, ok := rt.byID[t.ID]; ok {
		rec.excluded = excluded
	}
}

// SetStopTheWorldActive sets the process-wide stop-the-world flag.
func (rt *GoroutineRuntime) SetStopTheWorldActive(active bool) {
	rt.stw.Store(active)
}

// CurrentThreadIfManagedAndSafe implements ManagedRuntime.
func (rt *GoroutineRuntime) CurrentThreadIfManagedAndSafe() *ThreadHandle {
	gid := getGoroutineID()
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	h, ok := rt.byGID[gid]
	if !ok {
		return nil
	}
	rec := rt.byID[h.ID]
	if rec == nil || rec.exiting || rec.hidden || rec.excluded {
		return nil
	}
	return h
}

// ThreadState implements ManagedRuntime.
func (rt *GoroutineRuntime) ThreadState(t *ThreadHandle) ThreadState {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rec, ok := rt.byID[t.ID]; ok {
		return rec.state
	}
	return ThreadStateTransitional
}

// IsDeoptHandlerActive implements ManagedRuntime.
func (rt *GoroutineRuntime) IsDeoptHandlerActive(t *ThreadHandle) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rec, ok := rt.byID[t.ID]; ok {
		return rec.deopt
	}
	return false
}

// IsStopTheWorldActive implements ManagedRuntime.
func (rt *GoroutineRuntime) IsStopTheWorldActive() bool {
	return rt.stw.Load()
}

// TopFrameFromSignalContext implements ManagedRuntime using the last
// frame snapshot recorded via RecordFrame.
func (rt *GoroutineRuntime) TopFrameFromSignalContext(t *ThreadHandle) (RawFrame, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rec, ok := rt.byID[t.ID]
	if !ok || len(rec.frames) == 0 {
		return RawFrame{}, false
	}
	return rec.frames[0], true
}

// LastManagedFrame implements ManagedRuntime.
func (rt *GoroutineRuntime) LastManagedFrame(t *ThreadHandle) (frame RawFrame, hasFrame, hasMethod bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rec, ok := rt.byID[t.ID]
	if !ok || !rec.hasLastFrame {
		return RawFrame{}, false, false
	}
	return rec.lastFrame, true, rec.lastFrame.Method != 0
}

// AsyncStackWalker implements ManagedRuntime by copying the recorded
// snapshot (top is always frames[0] in this cooperative model).
func (rt *GoroutineRuntime) AsyncStackWalker(t *ThreadHandle, top RawFrame, out []RawFrame) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rec, ok := rt.byID[t.ID]
	if !ok {
		return 0
	}
	n := copy(out, rec.frames)
	return n
}

// PerThreadCPUClock implements ManagedRuntime using the platform-specific
// helper in goruntime_linux.go / goruntime_other.go.
func (rt *GoroutineRuntime) PerThreadCPUClock(t *ThreadHandle) (int32, bool) {
	return perThreadCPUClock(t.OSTID)
}

// ThreadIDForEvent implements ManagedRuntime. Returns an error if t has
// already been unregistered, exercising the consumer's crash-protection
// path.
func (rt *GoroutineRuntime) ThreadIDForEvent(t *ThreadHandle) (uint64, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if _, ok := rt.byID[t.ID]; !ok {
		return 0, fmt.Errorf("sampler: thread %d no longer registered", t.ID)
	}
	return t.ID, nil
}

// Threads implements ManagedRuntime, returning a ThreadLister wrapping
// this registry.
func (rt *GoroutineRuntime) Threads() ThreadLister {
	return (*goroutineThreadLister)(rt)
}

// goroutineThreadLister adapts *GoroutineRuntime to ThreadLister under a
// distinct method name: ManagedRuntime.Threads() and ThreadLister.Threads()
// would otherwise collide on the same receiver type.
type goroutineThreadLister GoroutineRuntime

// Threads implements ThreadLister.
func (rt *goroutineThreadLister) Threads() []*ThreadHandle {
	g := (*GoroutineRuntime)(rt)
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*ThreadHandle, 0, len(g.byID))
	for _, rec := range g.byID {
		if rec.excluded {
			continue
		}
		out = append(out, rec.handle)
	}
	return out
}

// getGoroutineID returns the current goroutine's ID, parsed from the
// runtime.Stack header. Adapted directly from the teacher's
// eventloop.getGoroutineID (loop.go) — same trick, same bounded buffer.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
