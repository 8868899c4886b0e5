// © 2025 chunktable authors. MIT License.

package chunktable

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvcore/chunktable/internal/epoch"
	"github.com/kvcore/chunktable/internal/unsafehelpers"
	"github.com/kvcore/chunktable/internal/xalloc"
)

// MaxKeyLength is the hard ceiling on key length.
const MaxKeyLength = 65535

// DefaultMaxKeyLength is the default cap when a caller doesn't
// override it: 64 KiB - 1.
const DefaultMaxKeyLength = 65535

// Config configures a Table at construction time.
type Config struct {
	// InitialBuckets is rounded up to the next power of two.
	InitialBuckets uint64
	// MaxKeyLength clamps at MaxKeyLength if set higher or left zero.
	MaxKeyLength int
	// GCLoopWait overrides the epoch collector's sleep interval.
	GCLoopWait time.Duration
	// HugePages backs the chunk and slot arrays with 2 MiB pages where
	// the platform supports it, falling back silently otherwise.
	HugePages bool
	// Logger receives the epoch collector's diagnostic events; nil
	// disables them.
	Logger epoch.Logger
}

// Table is a fixed-capacity, open-addressed hash table with chunked
// metadata, SIMD-style in-chunk probing, and stripe-locked writes. It
// is not resizable on-line: Resize is only the generation-switch hook,
// and the entry migration algorithm that would make it a live resize
// belongs to the caller.
//
// cur and old are atomic so lock-free readers stay safe across the
// generation switch; isResizing selects whether reads consult the old
// generation.
type Table struct {
	cur        atomic.Pointer[data]
	old        atomic.Pointer[data]
	isResizing atomic.Bool

	gc           *epoch.GC
	slab         *xalloc.KeySlab
	maxKeyLength int
	hugePages    bool

	// keyPins roots every live key buffer on the Go heap. Slot records
	// live in xalloc mmap memory the Go garbage collector never scans,
	// so the *byte a slot stores would not by itself keep the buffer's
	// backing array alive; each buffer stays pinned here from install
	// until the epoch collector proves no reader can still be
	// dereferencing it. Maps *byte (the slotted pointer) to the buffer.
	keyPins sync.Map
}

// New constructs a Table and starts its epoch GC collector goroutine.
func New(cfg Config) (*Table, error) {
	buckets := cfg.InitialBuckets
	if buckets == 0 {
		buckets = 128
	}
	buckets = unsafehelpers.NextPowerOfTwo(buckets)

	gen, err := newData(buckets, cfg.HugePages)
	if err != nil {
		return nil, err
	}

	maxKeyLength := cfg.MaxKeyLength
	if maxKeyLength <= 0 || maxKeyLength > MaxKeyLength {
		maxKeyLength = DefaultMaxKeyLength
	}

	var gcOpts []epoch.Option
	if cfg.GCLoopWait > 0 {
		gcOpts = append(gcOpts, epoch.WithLoopWait(cfg.GCLoopWait))
	}
	if cfg.Logger != nil {
		gcOpts = append(gcOpts, epoch.WithLogger(cfg.Logger))
	}

	t := &Table{
		slab:         xalloc.NewKeySlab(32),
		maxKeyLength: maxKeyLength,
		hugePages:    cfg.HugePages,
	}
	t.cur.Store(gen)
	t.gc = epoch.New(t.reclaimKey, gcOpts...)
	go t.gc.Run()
	return t, nil
}

// pinKey roots buf on the Go heap for as long as a slot can point at it.
func (t *Table) pinKey(buf []byte) {
	if len(buf) > 0 {
		t.keyPins.Store(&buf[0], buf)
	}
}

// reclaimKey is the epoch collector's callback: buf is provably
// unreachable by every registered reader, so its heap root is dropped
// and the buffer returned to the slab for reuse.
func (t *Table) reclaimKey(buf []byte) {
	if len(buf) > 0 {
		t.keyPins.Delete(&buf[0])
	}
	t.slab.Put(buf)
}

// Close stops the epoch collector and frees the table's backing
// storage. Every Handle obtained from Enter must have called Leave
// before Close, or it blocks forever waiting for quiescence.
func (t *Table) Close() {
	t.gc.Stop()
	t.cur.Load().free()
	if old := t.old.Load(); old != nil {
		old.free()
	}
}

// Resize is the generation-switch hook: it installs
// a fresh generation of at least newBuckets buckets (rounded up to a
// power of two) as the current one and keeps the previous generation
// live for reads until CompleteResize. Migrating entries between the two
// is the caller's job: iterate the old generation and re-Set each
// entry. Resize itself must not run concurrently with writers, though
// lock-free readers stay safe throughout.
func (t *Table) Resize(newBuckets uint64) error {
	if t.isResizing.Load() {
		return fmt.Errorf("%w: resize already in progress", ErrInvalidArgument)
	}
	gen, err := newData(unsafehelpers.NextPowerOfTwo(newBuckets), t.hugePages)
	if err != nil {
		return err
	}

	// Publish order matters for lock-free readers: a reader that loads
	// the new current generation must already see isResizing and the old
	// generation, or entries not yet migrated would vanish from reads.
	t.old.Store(t.cur.Load())
	t.isResizing.Store(true)
	t.cur.Store(gen)
	return nil
}

// CompleteResize drops the old generation and frees its storage. Callers
// must ensure no reader can still be walking the old generation — in the
// enclosing system that quiescence comes from the same epoch machinery
// that guards key reclamation.
func (t *Table) CompleteResize() {
	if !t.isResizing.Load() {
		return
	}
	old := t.old.Load()
	t.isResizing.Store(false)
	t.old.Store(nil)
	if old == nil {
		return
	}
	// Migrated entries copied their keys into fresh buffers; the old
	// generation's still-filled slots hold the last references to the
	// originals. The caller's quiescence guarantee makes them
	// reclaimable right now, without a trip through the staging rings.
	// Slots already flagged deleted were staged on delete and stay with
	// the collector.
	for c := uint64(0); c < old.chunksCount; c++ {
		slots := old.slotsForChunk(c)
		for i := range slots {
			s := &slots[i]
			if s.loadFlags() != flagFilled {
				continue
			}
			if buf := s.key(); buf != nil {
				t.reclaimKey(buf)
			}
		}
	}
	old.free()
}

// Handle is a registered reader/writer's epoch GC context.
// Obtain one per goroutine that will call Get/Set/Delete
// and call Leave when that goroutine is done with the table.
type Handle struct {
	tc *epoch.ThreadContext
}

// Enter registers a new Handle for the calling goroutine.
func (t *Table) Enter() *Handle {
	return &Handle{tc: epoch.Enter(t.gc)}
}

// Advance publishes the handle's current epoch and opportunistically
// drains any of its own reclaimable staged keys.
func (h *Handle) Advance() {
	h.tc.Advance()
}

// Leave marks the handle terminated; the collector reclaims anything it
// still has staged once every other live handle has advanced past it.
func (h *Handle) Leave() {
	h.tc.Leave()
}

// Stats reports cumulative epoch GC collector activity.
func (t *Table) Stats() epoch.Stats {
	return t.gc.Stats()
}

// BucketsCount returns the current generation's addressable bucket
// count.
func (t *Table) BucketsCount() uint64 {
	return t.cur.Load().bucketsCount
}

func (t *Table) validateKey(key []byte) error {
	if key == nil {
		return fmt.Errorf("%w: nil key", ErrInvalidArgument)
	}
	if len(key) > t.maxKeyLength {
		return fmt.Errorf("%w: key length %d exceeds max %d", ErrInvalidArgument, len(key), t.maxKeyLength)
	}
	return nil
}
