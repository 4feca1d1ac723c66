// Package recorder provides minimal, in-memory implementations of the
// sampler's EventRecorder and Resolver collaborators, for tests and
// examples. Spec.md treats both as external, unimplemented components;
// a testable repo needs some concrete pair to assert against.
package recorder

import (
	"fmt"
	"strings"
	"sync"
	"time"

	sampler "github.com/joeycumines/threadsampler"
)

// ExecutionSample is one committed sample, as recorded by MemoryRecorder.
type ExecutionSample struct {
	ThreadID     uint64
	StacktraceID uint64
	Start, End   time.Time
}

// DropEvent is one committed drop report.
type DropEvent struct {
	Dropped uint64
	At      time.Time
}

// MemoryRecorder accumulates every emitted sample and drop event in
// memory, guarded by a mutex. Intended for tests and small examples, not
// production volumes.
type MemoryRecorder struct {
	mu            sync.Mutex
	samples       []ExecutionSample
	drops         []DropEvent
	sampleEnabled bool
	dropEnabled   bool
}

// NewMemoryRecorder creates a recorder with both event kinds enabled.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{sampleEnabled: true, dropEnabled: true}
}

// SetExecutionSampleEnabled toggles whether execution samples are accepted.
func (r *MemoryRecorder) SetExecutionSampleEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sampleEnabled = enabled
}

// SetDropEventEnabled toggles whether drop events are accepted.
func (r *MemoryRecorder) SetDropEventEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropEnabled = enabled
}

// EmitExecutionSample implements sampler.EventRecorder.
func (r *MemoryRecorder) EmitExecutionSample(threadID, stacktraceID uint64, start, end time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, ExecutionSample{ThreadID: threadID, StacktraceID: stacktraceID, Start: start, End: end})
}

// EmitDropEvent implements sampler.EventRecorder.
func (r *MemoryRecorder) EmitDropEvent(dropped uint64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drops = append(r.drops, DropEvent{Dropped: dropped, At: at})
}

// IsExecutionSampleEnabled implements sampler.EventRecorder.
func (r *MemoryRecorder) IsExecutionSampleEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sampleEnabled
}

// IsDropEventEnabled implements sampler.EventRecorder.
func (r *MemoryRecorder) IsDropEventEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropEnabled
}

// Samples returns a snapshot copy of every sample recorded so far.
func (r *MemoryRecorder) Samples() []ExecutionSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutionSample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Drops returns a snapshot copy of every drop event recorded so far.
func (r *MemoryRecorder) Drops() []DropEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DropEvent, len(r.drops))
	copy(out, r.drops)
	return out
}

// TotalDropped sums every drop event's count.
func (r *MemoryRecorder) TotalDropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint64
	for _, d := range r.drops {
		total += d.Dropped
	}
	return total
}

// simpleBuffer is SimpleResolver's ResolutionBuffer: an unbounded demo
// buffer that just tracks a notional remaining-space counter so the
// consumer's MIN_BUFFER renewal logic has something real to exercise.
type simpleBuffer struct {
	remaining int
}

func (b *simpleBuffer) Remaining() int {
	return b.remaining
}

// bufferCapacity is the notional size handed out by GetOrRenewBuffer.
const bufferCapacity = 1 << 16

// SimpleResolver assigns a stable, incrementing ID to each distinct raw
// frame sequence it sees, deduplicated by an exact-match key. It does not
// attempt symbolic resolution — this package has no method table to
// resolve against — only stable identity, which is all the consumer and
// the testable-properties suite (§8) need.
type SimpleResolver struct {
	mu   sync.Mutex
	ids  map[string]uint64
	next uint64
}

// NewSimpleResolver creates an empty resolver; the first distinct stack
// seen is assigned ID 1 (0 is reserved for "no resolution").
func NewSimpleResolver() *SimpleResolver {
	return &SimpleResolver{ids: make(map[string]uint64), next: 1}
}

// GetOrRenewBuffer implements sampler.Resolver.
func (s *SimpleResolver) GetOrRenewBuffer(min int) sampler.ResolutionBuffer {
	return &simpleBuffer{remaining: bufferCapacity}
}

// Store implements sampler.Resolver.
func (s *SimpleResolver) Store(frames []sampler.RawFrame, buf sampler.ResolutionBuffer) uint64 {
	if len(frames) == 0 {
		return 0
	}

	key := frameKey(frames)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[key]; ok {
		return id
	}
	id := s.next
	s.next++
	s.ids[key] = id

	if sb, ok := buf.(*simpleBuffer); ok {
		sb.remaining -= len(frames)
	}
	return id
}

// Count returns the number of distinct stacktrace IDs assigned so far.
func (s *SimpleResolver) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func frameKey(frames []sampler.RawFrame) string {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "%x:%x;", f.Method, f.PC)
	}
	return b.String()
}
