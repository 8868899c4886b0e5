package kvtable

// table.go is the public, generic entry point: Table[K,V] wraps
// internal/chunktable.Table, translating strongly-typed keys/values to
// the []byte/unsafe.Pointer representation the engine stores.
//
// internal/chunktable's slot/chunk arrays live in mmap-backed memory
// (internal/xalloc.Region), which the Go garbage collector never scans.
// A *V boxed on the ordinary Go heap and referenced only through that
// off-heap unsafe.Pointer field would therefore be collectible the
// instant nothing else on-heap points to it — even while a concurrent
// reader is still about to dereference it. Table[K,V] keeps every live
// box pinned in its own on-heap registry (values) for exactly as long as
// the slot holding its pointer can still be read, and drops the
// registry entry only once Set/Delete has made that slot unreachable
// for new readers.
//
// © 2025 chunktable authors. MIT License.
import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kvcore/chunktable/internal/chunktable"
	"github.com/kvcore/chunktable/internal/epoch"
	"github.com/kvcore/chunktable/internal/hashfn"
	"go.uber.org/zap"
)

// tableStats is the table's own operation counters, kept regardless of
// whether a Prometheus registry was supplied: they feed both the optional
// metricsSink and the debug snapshot endpoint chunktable-inspect reads.
type tableStats struct {
	hits       atomic.Uint64
	misses     atomic.Uint64
	sets       atomic.Uint64
	deletes    atomic.Uint64
	outOfSpace atomic.Uint64
}

// Table is a generic, concurrent, fixed-capacity hash table keyed by any
// comparable K and holding any V.
type Table[K comparable, V any] struct {
	inner   *chunktable.Table
	loaders *loaderGroup[K, V]
	metrics metricsSink
	logger  *zap.Logger
	stats   tableStats

	values sync.Map // unsafe.Pointer -> *V, pins boxes live while slotted
}

// New constructs a Table with the given initial bucket count (rounded up
// to a power of two) and starts its background epoch collector.
func New[K comparable, V any](initialBuckets uint64, opts ...Option[K, V]) (*Table[K, V], error) {
	cfg := defaultConfig[K, V](initialBuckets)
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	inner, err := chunktable.New(chunktable.Config{
		InitialBuckets: cfg.initialBuckets,
		MaxKeyLength:   cfg.maxKeyLength,
		GCLoopWait:     cfg.gcLoopWait,
		HugePages:      cfg.hugePages,
		Logger:         cfg.logger.Sugar(),
	})
	if err != nil {
		return nil, err
	}

	t := &Table[K, V]{
		inner:   inner,
		loaders: newLoaderGroup[K, V](),
		logger:  cfg.logger,
	}
	t.metrics = newMetricsSink(cfg.registry,
		func() float64 { return float64(inner.Len()) },
		func() float64 { return float64(inner.Stats().CollectedObjects) },
	)
	return t, nil
}

// Close stops the epoch collector and frees the table's backing
// storage. Every Handle obtained from Enter must have called Leave
// first, or Close blocks forever waiting for quiescence.
func (t *Table[K, V]) Close() {
	t.inner.Close()
}

// Handle registers the calling goroutine as a reader/writer for epoch
// GC purposes. Obtain one per goroutine before calling Delete, and call
// Leave when that goroutine is done with the table.
type Handle[K comparable, V any] struct {
	h *chunktable.Handle
}

// Enter registers a new Handle for the calling goroutine.
func (t *Table[K, V]) Enter() *Handle[K, V] {
	return &Handle[K, V]{h: t.inner.Enter()}
}

// Advance publishes the handle's current epoch and opportunistically
// drains anything it still has staged for reclamation.
func (h *Handle[K, V]) Advance() { h.h.Advance() }

// Leave marks the handle terminated.
func (h *Handle[K, V]) Leave() { h.h.Leave() }

func (t *Table[K, V]) box(v V) unsafe.Pointer {
	p := new(V)
	*p = v
	ptr := unsafe.Pointer(p)
	t.values.Store(ptr, p)
	return ptr
}

func (t *Table[K, V]) unbox(ptr unsafe.Pointer) V {
	return *(*V)(ptr)
}

func (t *Table[K, V]) unpin(ptr unsafe.Pointer) {
	if ptr != nil {
		t.values.Delete(ptr)
	}
}

// Get returns the value stored for key, if any.
func (t *Table[K, V]) Get(key K) (V, bool) {
	kb := keyBytes(key)
	ptr, ok := t.inner.Get(kb)
	if !ok {
		t.stats.misses.Add(1)
		t.metrics.incMiss()
		var zero V
		return zero, false
	}
	t.stats.hits.Add(1)
	t.metrics.incHit()
	return t.unbox(ptr), true
}

// Set inserts or overwrites the value stored for key, returning the
// previous value if one existed.
func (t *Table[K, V]) Set(key K, value V) (prev V, existed bool, err error) {
	kb := keyBytes(key)
	newPtr := t.box(value)

	prevPtr, err := t.inner.Set(kb, newPtr)
	if err != nil {
		t.unpin(newPtr)
		if err == chunktable.ErrOutOfSpace {
			t.stats.outOfSpace.Add(1)
			t.metrics.incOutOfSpace()
			t.logger.Warn("kvtable: set rejected, search window exhausted",
				zap.Int("key_len", len(kb)))
		}
		var zero V
		return zero, false, err
	}

	t.stats.sets.Add(1)
	t.metrics.incSet()

	if prevPtr == nil {
		var zero V
		return zero, false, nil
	}
	prev = t.unbox(prevPtr)
	t.unpin(prevPtr)
	return prev, true, nil
}

// Delete removes key, returning its previous value if one existed. h
// must belong to the calling goroutine; the deleted key buffer is
// released once every other live Handle has advanced past this point,
// while the boxed value's pin is dropped before Delete returns.
func (t *Table[K, V]) Delete(h *Handle[K, V], key K) (V, bool) {
	kb := keyBytes(key)
	ptr, ok := t.inner.Delete(h.h, kb)
	if !ok {
		var zero V
		return zero, false
	}
	t.stats.deletes.Add(1)
	t.metrics.incDelete()
	val := t.unbox(ptr)
	t.unpin(ptr)
	return val, true
}

// GetOrLoad returns the value for key, loading it via fn on a miss. A
// thundering herd of concurrent misses for the same key runs fn once;
// every other caller shares its result.
func (t *Table[K, V]) GetOrLoad(ctx context.Context, key K, fn LoaderFunc[K, V]) (V, error, bool) {
	if v, ok := t.Get(key); ok {
		return v, nil, false
	}

	kb := keyBytes(key)
	hash := hashfn.Hash(kb)
	val, err, shared := t.loaders.load(ctx, hash, key, fn)
	if err != nil {
		var zero V
		return zero, err, shared
	}
	if _, _, setErr := t.Set(key, val); setErr != nil {
		t.logger.Warn("kvtable: GetOrLoad failed to cache loaded value", zap.Error(setErr))
	}
	return val, nil, shared
}

// Resize replaces the table's backing storage with a generation of at
// least newBuckets buckets (rounded up to a power of two) and migrates
// every entry into it. It is the off-line form of the resize hook: the
// caller must ensure no other operation runs on the table for the
// duration — the concurrent migration algorithm that would make this an
// on-line resize is deliberately out of this package's scope.
func (t *Table[K, V]) Resize(newBuckets uint64) error {
	if err := t.inner.Resize(newBuckets); err != nil {
		return err
	}
	it := t.inner.OldEntries()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		if _, err := t.inner.Set(e.Key, e.Value); err != nil {
			// Old generation stays readable; the caller can retry with a
			// larger target.
			return err
		}
	}
	t.inner.CompleteResize()
	return nil
}

// Len returns the number of live entries in the table.
func (t *Table[K, V]) Len() int { return t.inner.Len() }

// BucketsCount returns the table's addressable bucket count.
func (t *Table[K, V]) BucketsCount() uint64 { return t.inner.BucketsCount() }

// Stats reports cumulative epoch GC collector activity.
func (t *Table[K, V]) Stats() epoch.Stats { return t.inner.Stats() }
