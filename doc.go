// Package sampler implements a per-thread CPU-time execution sampler for a
// managed runtime.
//
// # Architecture
//
// The sampler's core is a fixed pipeline: a per-thread POSIX CPU-clock timer
// ([timerRegistry]) expires and delivers a dedicated real-time signal to the
// thread it is bound to; the signal path ([handleSignal]) acquires a
// preallocated [TraceSlot] from a lock-free [TracePool], records a raw stack,
// and hands it to a consumer goroutine ([Sampler.consumerLoop]) for
// resolution and event emission. A [Controller] owns the lifecycle: period
// changes, thread-create/terminate hooks, and the enroll/disenroll protocol
// that drains in-flight handlers before the queues are reset.
//
// # Platform Support
//
// The full pipeline requires per-thread CPU-clock timers, which only Linux
// exposes without cgo (via timer_create bound to a thread's clock ID). On
// Darwin, Windows, and any other GOOS, [Controller.SetPeriod] checks this
// before touching the pool, queues, or consumer goroutine at all: a call
// with ms > 0 logs a one-shot warning (via sync.Once, regardless of any
// diagnostic rate-limit configuration) and returns [ErrPlatformUnsupported]
// without creating the sampler; every other operation is already a no-op
// since the sampler is never created.
//
// # Thread Safety
//
// [Controller.SetPeriod], [Controller.OnThreadCreate], and
// [Controller.OnThreadTerminate] are safe to call concurrently from any
// goroutine. The free and filled queues are lock-free MPMC rings; the signal
// path never takes a mutex and never allocates once the pool is built.
//
// # External Collaborators
//
// The sampler does not resolve frames to method IDs or decide where events
// go: it depends on a [ManagedRuntime] (thread introspection), a [Resolver]
// (raw-frame to stacktrace-ID resolution), and an [EventRecorder] (final
// event sink), all supplied by the embedder. [GoroutineRuntime] is a demo
// [ManagedRuntime] built on real goroutines for tests and examples; it is
// not required for production use.
package sampler
