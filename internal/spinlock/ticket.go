// © 2025 chunktable authors. MIT License.

package spinlock

import (
	"runtime"
	"sync/atomic"
)

// maxSpinsBeforeStuckTicket is the same bounded-spin threshold the plain
// lock uses, for the same reason.
const maxSpinsBeforeStuckTicket = 1 << 16

// TicketLock is a FIFO-fair spinlock: the first goroutine to call Lock is
// the first to be granted it. Used by the epoch GC's thread-list lock,
// where writer starvation under many short-lived registrations would
// otherwise be possible with a plain CAS lock.
type TicketLock struct {
	available atomic.Uint32
	serving   atomic.Uint32
	stuck     atomic.Bool
}

// Lock waits for its ticket to be served and returns the ticket number
// (useful only for diagnostics/tests). Past the stuck threshold it sets
// the diagnostic flag and yields the P between attempts, same as the
// plain lock.
func (t *TicketLock) Lock() uint32 {
	my := t.available.Add(1) - 1
	var spins uint64
	for t.serving.Load() != my {
		spins++
		if spins == maxSpinsBeforeStuckTicket {
			t.stuck.Store(true)
		}
		if spins >= maxSpinsBeforeStuckTicket {
			runtime.Gosched()
		}
	}
	t.stuck.Store(false)
	return my
}

// Unlock advances the serving counter, releasing the next ticket holder.
func (t *TicketLock) Unlock() {
	t.serving.Add(1)
}

// Stuck reports whether the lock has recently exceeded the stuck-detection
// spin threshold. Diagnostic only.
func (t *TicketLock) Stuck() bool {
	return t.stuck.Load()
}
