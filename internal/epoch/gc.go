// Package epoch implements the epoch-based reclamation scheme that lets
// chunktable's readers run lock-free while writers retire key buffers
// readers may still be dereferencing.
//
// Three pieces cooperate: a ThreadContext per reader/writer, staging
// retired buffers into its own SPSC ring; a GC tracking the registered
// threads and the global tick; and a background collector goroutine that
// periodically rebuilds its cached thread list and drains whatever is
// now provably safe: sleep, rebuild the cache if the list changed,
// drain what the minimum published epoch allows, repeat.
//
// © 2025 chunktable authors. MIT License.
package epoch

import (
	"sync/atomic"
	"time"

	"github.com/kvcore/chunktable/internal/spinlock"
)

// DefaultLoopWait is the collector's sleep interval between passes.
const DefaultLoopWait = 20 * time.Millisecond

// Stats reports cumulative collector activity, surfaced through
// pkg/kvtable's metrics.
type Stats struct {
	CollectedObjects uint64
}

// GC owns the registered thread list and the shared tick counter every
// ThreadContext publishes against. Create one per table.
//
// The thread-list lock is the ticket variant: registration bursts (a pool
// of worker goroutines entering at startup) and the collector's periodic
// rebuild contend on it, and FIFO fairness keeps a rebuild from being
// starved behind a stream of registrations.
type GC struct {
	tick            atomic.Uint64
	globalSafeEpoch atomic.Uint64

	threadListLock         spinlock.TicketLock
	threads                []*threadContext
	threadListChangeEpoch  atomic.Uint64

	onReclaim func([]byte)
	loopWait  time.Duration
	log       Logger

	terminate atomic.Bool
	done      chan struct{}

	collected atomic.Uint64
}

// Logger is the minimal logging surface the collector needs. It is
// satisfied by *zap.SugaredLogger without this package importing zap —
// the same pkg-knows-zap, internal-doesn't split the rest of the module
// follows.
type Logger interface {
	Warnf(template string, args ...any)
}

// Option configures a GC at construction time.
type Option func(*GC)

// WithLoopWait overrides the collector's sleep interval between passes.
func WithLoopWait(d time.Duration) Option {
	return func(gc *GC) { gc.loopWait = d }
}

// WithLogger makes the collector report diagnostic events (a contended
// thread-list lock crossing the stuck threshold). Nil disables logging,
// which is also the default.
func WithLogger(l Logger) Option {
	return func(gc *GC) { gc.log = l }
}

// New creates a GC. onReclaim is invoked by the collector goroutine (and
// by a producer thread in ThreadContext.Advance or under back-pressure in
// ThreadContext.Stage) once a staged
// buffer is provably unreachable by any registered reader; it typically
// returns the buffer to a xalloc.KeySlab.
func New(onReclaim func([]byte), opts ...Option) *GC {
	gc := &GC{
		onReclaim: onReclaim,
		loopWait:  DefaultLoopWait,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gc)
	}
	return gc
}

func (gc *GC) reclaim(buf []byte) {
	gc.collected.Add(1)
	if gc.onReclaim != nil {
		gc.onReclaim(buf)
	}
}

// register adds tc to the thread list and bumps the change-epoch counter
// so the collector knows to rebuild its cache.
func (gc *GC) register(tc *threadContext) {
	gc.threadListLock.Lock()
	gc.threads = append(gc.threads, tc)
	gc.threadListLock.Unlock()
	gc.threadListChangeEpoch.Add(1)
}

func (gc *GC) unregister(tc *threadContext) {
	gc.threadListLock.Lock()
	for i, t := range gc.threads {
		if t == tc {
			gc.threads = append(gc.threads[:i], gc.threads[i+1:]...)
			break
		}
	}
	gc.threadListLock.Unlock()
	gc.threadListChangeEpoch.Add(1)
}

// rebuildSnapshot refills the collector's cached thread-list queue from
// the authoritative list, under the thread-list lock. The queue is the
// collector's private copy: between rebuilds the collector rotates
// through it without touching the lock again.
func (gc *GC) rebuildSnapshot(q *snapshotQueue) {
	gc.threadListLock.Lock()
	defer gc.threadListLock.Unlock()
	q.reset(len(gc.threads))
	for _, t := range gc.threads {
		q.enqueue(t)
	}
}

// Stats returns a point-in-time snapshot of collector activity.
func (gc *GC) Stats() Stats {
	return Stats{CollectedObjects: gc.collected.Load()}
}

// computeSafeEpoch is the minimum published epoch among all non-terminated
// threads in the snapshot; with no live threads it's the current tick,
// since nothing could still be observing anything staged before it. It
// rotates the queue one full revolution, leaving it in its original order.
func computeSafeEpoch(tick uint64, cache *snapshotQueue) uint64 {
	safe := tick
	for i, n := 0, cache.length(); i < n; i++ {
		t, _ := cache.dequeue()
		cache.enqueue(t)
		if t.terminated.Load() {
			continue
		}
		if e := t.epoch.Load(); e < safe {
			safe = e
		}
	}
	return safe
}

// Run executes the collector's main loop until Stop is called. Call it in
// its own goroutine; it returns once teardown (final forced drain and
// thread unregistration) completes.
func (gc *GC) Run() {
	cache := newSnapshotQueue(0)
	var cachedChangeEpoch uint64
	haveCache := false

	for !gc.terminate.Load() {
		time.Sleep(gc.loopWait)

		current := gc.threadListChangeEpoch.Load()
		if !haveCache || current != cachedChangeEpoch {
			gc.rebuildSnapshot(cache)
			cachedChangeEpoch = current
			haveCache = true
			if gc.log != nil && gc.threadListLock.Stuck() {
				gc.log.Warnf("epoch: thread-list lock crossed the stuck-detection spin threshold")
			}
		}

		safe := computeSafeEpoch(gc.tick.Load(), cache)
		gc.globalSafeEpoch.Store(safe)
		for i, n := 0, cache.length(); i < n; i++ {
			t, _ := cache.dequeue()
			cache.enqueue(t)
			for _, s := range t.ring.drainEligible(safe) {
				gc.reclaim(s.buf)
			}
		}
	}

	gc.teardown(cache)
	close(gc.done)
}

// teardown rebuilds the snapshot from the authoritative thread list,
// waits for every registered thread to report itself terminated, forces
// a final epoch advance on each so nothing is held back, drains
// everything unconditionally, and unregisters each thread.
func (gc *GC) teardown(cache *snapshotQueue) {
	gc.rebuildSnapshot(cache)

	for {
		allTerminated := true
		for i, n := 0, cache.length(); i < n; i++ {
			t, _ := cache.dequeue()
			cache.enqueue(t)
			if !t.terminated.Load() {
				allTerminated = false
			}
		}
		if allTerminated {
			break
		}
		time.Sleep(gc.loopWait)
	}

	forcedTick := gc.tick.Add(1)
	for {
		t, ok := cache.dequeue()
		if !ok {
			break
		}
		t.epoch.Store(forcedTick)
		for _, s := range t.ring.drainAll() {
			gc.reclaim(s.buf)
		}
		gc.unregister(t)
	}
}

// Stop signals the collector goroutine to terminate and blocks until its
// teardown has completed. Every registered ThreadContext must have had
// Leave called before Stop, or teardown blocks forever waiting for it.
func (gc *GC) Stop() {
	gc.terminate.Store(true)
	<-gc.done
}
