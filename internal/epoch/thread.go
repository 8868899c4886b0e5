// © 2025 chunktable authors. MIT License.

package epoch

import "sync/atomic"

const defaultRingCapacity = 1024

// threadContext is one reader/writer's registration with a GC: its
// published epoch, its staging ring, and whether it has left.
type threadContext struct {
	gc         *GC
	ring       *ring
	epoch      atomic.Uint64
	terminated atomic.Bool
}

// ThreadContext is the handle a caller holds after Enter. It wraps the
// internal registration so callers can't reach into GC's bookkeeping.
type ThreadContext struct {
	t *threadContext
}

// Enter registers the calling thread (goroutine) with gc and returns its
// handle. The handle is not safe for concurrent use by more than one
// goroutine at a time — each logical worker calls Enter once.
func Enter(gc *GC) *ThreadContext {
	tc := &threadContext{
		gc:   gc,
		ring: newRing(defaultRingCapacity),
	}
	tc.epoch.Store(gc.tick.Load())
	gc.register(tc)
	return &ThreadContext{t: tc}
}

// Advance bumps the thread's published epoch to the GC's current tick
// and opportunistically drains any of its own staged entries that are
// already provably safe, per the GC's last-published safe epoch. This is
// an optimization only: correctness does not depend on it running, since
// the collector goroutine performs the authoritative drain.
func (h *ThreadContext) Advance() {
	t := h.t
	newTick := t.gc.tick.Add(1)
	t.epoch.Store(newTick)

	safe := t.gc.globalSafeEpoch.Load()
	for _, s := range t.ring.drainEligible(safe) {
		t.gc.reclaim(s.buf)
	}
}

// Stage retires buf: it must not be read or mutated again by the caller,
// but a concurrent reader that observed it before this call may still be
// dereferencing it until the GC proves it safe to reclaim. If the
// staging ring is full, Stage advances and drains
// synchronously before retrying, exerting back-pressure on the producer
// rather than growing the ring unboundedly.
func (h *ThreadContext) Stage(buf []byte) {
	t := h.t
	entry := staged{buf: buf, epoch: t.epoch.Load()}
	for !t.ring.push(entry) {
		h.Advance()
		h.collectAllOwn()
	}
}

// collectAllOwn forces every one of the thread's own staged entries to
// be reclaimed immediately, used only as back-pressure relief: Stage
// calls it right after an Advance each time a push finds the ring full.
func (h *ThreadContext) collectAllOwn() {
	t := h.t
	for _, s := range t.ring.drainAll() {
		t.gc.reclaim(s.buf)
	}
}

// Leave marks the thread terminated. The collector frees any objects it
// still holds staged once the rest of the table has quiesced past them;
// the context stays in the thread list until the collector's teardown
// (GC.Stop) unregisters it.
func (h *ThreadContext) Leave() {
	h.t.terminated.Store(true)
}
