package sampler

import "sync/atomic"

// slotRing is a fixed-capacity, lock-free, multi-producer/multi-consumer
// bounded ring buffer of *TraceSlot. Two instances back the sampler: the
// free queue (multi-consumer: handlers dequeue; single-producer: the
// consumer goroutine enqueues returned slots) and the filled queue
// (multi-producer: handlers enqueue; single-consumer: the consumer
// goroutine dequeues) — sized identically to the spec's asymmetric roles,
// but implemented as full MPMC so neither instantiation needs a
// specialized variant.
//
// Algorithm: each cell carries its own sequence number (Vyukov's bounded
// MPMC queue). A cell starts at seq == its index; a producer claims cell
// i by CASing tail from i to i+1, writes the value, then stores seq = i+1
// (a release, making the write visible to whichever consumer acquires
// it); a consumer claims cell i by CASing head from i to i+1 only after
// observing seq == i+1 (an acquire), reads the value, then stores
// seq = i+cap to open the cell for the ring's next lap.
//
// This is the same release/acquire shape as the teacher's MicrotaskRing
// (ingress.go): write data, then a release store of a per-slot sequence
// guard; read the guard acquire, then the data. It generalizes that
// design to true multi-consumer dequeue (the teacher's ring is
// single-consumer) and drops the overflow path entirely: this ring must
// never allocate or block, so a full enqueue simply fails and the caller
// (handleSignal) counts a drop.
//
// Async-signal-safety: enqueue/dequeue use only atomic loads, atomic CAS,
// and plain pointer stores into preallocated memory. No allocator, no
// mutex, no lazily-initialized thread-local state.
type slotRing struct {
	cap  uint64
	buf  []ringCell
	_    [sizeOfCacheLine - sizeOfAtomicUint64]byte
	head atomic.Uint64
	_    [sizeOfCacheLine - sizeOfAtomicUint64]byte
	tail atomic.Uint64
}

type ringCell struct {
	seq  atomic.Uint64
	data *TraceSlot
}

// newSlotRing creates a ring of the given capacity, which must be > 0.
func newSlotRing(capacity int) *slotRing {
	r := &slotRing{
		cap: uint64(capacity),
		buf: make([]ringCell, capacity),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// enqueue attempts to add slot to the ring. Returns false iff full.
func (r *slotRing) enqueue(slot *TraceSlot) bool {
	pos := r.tail.Load()
	for {
		cell := &r.buf[pos%r.cap]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				cell.data = slot
				cell.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		default:
			pos = r.tail.Load()
		}
	}
}

// dequeue attempts to remove a slot from the ring. Returns false iff empty.
func (r *slotRing) dequeue() (*TraceSlot, bool) {
	pos := r.head.Load()
	for {
		cell := &r.buf[pos%r.cap]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				slot := cell.data
				cell.data = nil
				cell.seq.Store(pos + r.cap)
				return slot, true
			}
		case diff < 0:
			return nil, false
		default:
			pos = r.head.Load()
		}
	}
}

// len reports an instantaneous, possibly-stale count of occupied cells.
// Used only by tests and metrics, never on the hot path.
func (r *slotRing) len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// reset drains the ring back to empty. Only safe to call once all
// producers and consumers have quiesced — the controller's disenroll
// sequence guarantees this by draining active handlers first (§4.6).
func (r *slotRing) reset() {
	for {
		if _, ok := r.dequeue(); !ok {
			break
		}
	}
	r.head.Store(0)
	r.tail.Store(0)
	for i := range r.buf {
		r.buf[i].data = nil
		r.buf[i].seq.Store(uint64(i))
	}
}
