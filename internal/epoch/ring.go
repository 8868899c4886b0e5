// © 2025 chunktable authors. MIT License.

package epoch

import (
	"sync/atomic"

	"github.com/kvcore/chunktable/internal/spinlock"
)

// staged is one retired pointer tagged with the tick at which it was
// retired.
type staged struct {
	buf   []byte
	epoch uint64
}

// ring is a bounded single-producer single-consumer queue of staged
// entries: the owning thread context is the only producer, the
// background collector the only consumer.
// Capacity is rounded up to a power of two so index wrapping is a mask.
//
// The ring is SPSC in the common case (owning thread produces, collector
// consumes), but the owning thread also drains its own ring, in Advance
// and synchronously under back-pressure. drainLock makes every dequeue
// path safe against a concurrent collector pass over the same ring;
// pushes stay lock-free.
type ring struct {
	buf       []staged
	mask      uint64
	head      atomic.Uint64 // next slot the producer will write
	tail      atomic.Uint64 // next slot a consumer will read
	drainLock spinlock.Lock
}

func newRing(capacity int) *ring {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &ring{
		buf:  make([]staged, n),
		mask: uint64(n - 1),
	}
}

// cap returns the ring's fixed capacity.
func (r *ring) cap() int {
	return len(r.buf)
}

// len returns an approximate occupancy; only the producer's view of head
// is authoritative for itself, same for the consumer's tail, so this is
// safe to call from either side for a capacity check.
func (r *ring) len() int {
	return int(r.head.Load() - r.tail.Load())
}

// push appends an entry. Returns false if the ring is full; the caller
// (the producing thread) must then advance and collect synchronously
// before retrying.
func (r *ring) push(s staged) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = s
	r.head.Store(head + 1)
	return true
}

// drainEligible pops and returns every staged entry retired strictly
// before safeEpoch, oldest first: an entry tagged with epoch e is only
// safe once every live thread has advanced past e, i.e. safeEpoch > e,
// never safeEpoch == e (a thread still sitting at e may have read it).
// Safe to call concurrently from both the owning thread (back-pressure
// drain) and the collector.
func (r *ring) drainEligible(safeEpoch uint64) []staged {
	r.drainLock.Lock()
	defer r.drainLock.Unlock()

	var out []staged
	for {
		tail := r.tail.Load()
		head := r.head.Load()
		if tail == head {
			break
		}
		entry := r.buf[tail&r.mask]
		if entry.epoch >= safeEpoch {
			break
		}
		out = append(out, entry)
		r.tail.Store(tail + 1)
	}
	return out
}

// drainAll unconditionally drains every staged entry, used once the
// collector has confirmed a thread is terminated and quiescent.
func (r *ring) drainAll() []staged {
	return r.drainEligible(^uint64(0))
}
