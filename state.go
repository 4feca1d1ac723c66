package sampler

import "sync/atomic"

// samplerState is the global atomic state shared between the signal path,
// the consumer, and the controller: a period, a disenrolled flag, a
// stop-signals flag, an active-handler counter, and drop counters.
//
// PERFORMANCE: pure atomics, no mutex — stopSignals and activeHandlers are
// touched on every signal delivery and are cache-line padded to avoid
// false sharing with the fields the controller and consumer touch instead.
type samplerState struct { // betteralign:ignore
	_              [sizeOfCacheLine]byte
	stopSignals    atomic.Bool  // checked first in handleSignal
	_              [sizeOfCacheLine - 1]byte
	activeHandlers atomic.Int64 // inc/dec around every handler invocation
	_              [sizeOfCacheLine - sizeOfAtomicUint64]byte
	periodMillis   atomic.Int64 // 0 disables sampling
	disenrolled    atomic.Bool
	drop           atomic.Uint64 // since-last-report drop count
	cumulativeDrop atomic.Uint64 // lifetime drop count
}

// newSamplerState returns a state starting disenrolled, period 0.
func newSamplerState() *samplerState {
	s := &samplerState{}
	s.disenrolled.Store(true)
	return s
}

// PeriodMillis returns the current sample period in milliseconds.
func (s *samplerState) PeriodMillis() int64 {
	return s.periodMillis.Load()
}

// SetPeriodMillis updates the sample period.
func (s *samplerState) SetPeriodMillis(ms int64) {
	s.periodMillis.Store(ms)
}

// StopSignals reports whether signal handlers should return immediately.
func (s *samplerState) StopSignals() bool {
	return s.stopSignals.Load()
}

// SetStopSignals sets or clears the stop-signals flag.
func (s *samplerState) SetStopSignals(v bool) {
	s.stopSignals.Store(v)
}

// Disenrolled reports whether the sampler is currently disenrolled.
func (s *samplerState) Disenrolled() bool {
	return s.disenrolled.Load()
}

// SetDisenrolled sets or clears the disenrolled flag.
func (s *samplerState) SetDisenrolled(v bool) {
	s.disenrolled.Store(v)
}

// IncActiveHandlers atomically increments the in-flight handler counter.
func (s *samplerState) IncActiveHandlers() {
	s.activeHandlers.Add(1)
}

// DecActiveHandlers atomically decrements the in-flight handler counter.
func (s *samplerState) DecActiveHandlers() {
	s.activeHandlers.Add(-1)
}

// ActiveHandlers returns the current in-flight handler count.
func (s *samplerState) ActiveHandlers() int64 {
	return s.activeHandlers.Load()
}

// RecordDrop increments both the since-last-report and cumulative drop
// counters. Called from signal context: atomic add only.
func (s *samplerState) RecordDrop() {
	s.drop.Add(1)
	s.cumulativeDrop.Add(1)
}

// TakeDrop atomically reads and resets the since-last-report drop count.
// Called once per consumer iteration.
func (s *samplerState) TakeDrop() uint64 {
	return s.drop.Swap(0)
}

// CumulativeDrop returns the lifetime drop count.
func (s *samplerState) CumulativeDrop() uint64 {
	return s.cumulativeDrop.Load()
}
