// © 2025 chunktable authors. MIT License.

package chunktable

import (
	"sync/atomic"
	"unsafe"

	"github.com/kvcore/chunktable/internal/unsafehelpers"
)

// slotFlags is the per-slot state bitset: FILLED and DELETED are
// mutually exclusive; neither set means never used.
type slotFlags uint32

const (
	flagFilled  slotFlags = 1 << 0
	flagDeleted slotFlags = 1 << 1
)

// slot is one entry in the parallel keys_values array: a key/value pair
// addressed by the same index as its half-hash word in the owning
// chunk. value is a pointer-sized opaque handle owned by the caller,
// stored as unsafe.Pointer.
//
// Slot records live in xalloc mmap memory the Go garbage collector
// never scans, so neither keyPtr nor value roots its referent: the key
// buffer is rooted by Table.keyPins for the lifetime of the slot, and
// the value handle's lifetime is the caller's problem (pkg/kvtable pins
// its boxes the same way).
type slot struct {
	flags  atomic.Uint32
	keyLen atomic.Uint32
	keyPtr atomic.Pointer[byte]
	value  unsafe.Pointer
}

func (s *slot) loadFlags() slotFlags {
	return slotFlags(s.flags.Load())
}

func (s *slot) loadValue() unsafe.Pointer {
	return atomic.LoadPointer(&s.value)
}

func (s *slot) storeValue(v unsafe.Pointer) {
	atomic.StorePointer(&s.value, v)
}

// key returns a view of the stored key bytes. The returned slice aliases
// the slab buffer and must not be retained past the caller's use of it.
func (s *slot) key() []byte {
	p := s.keyPtr.Load()
	if p == nil {
		return nil
	}
	return unsafehelpers.PtrSlice(p, int(s.keyLen.Load()))
}

// install publishes a new entry into a slot the caller's write lock
// already guards. Ordering matters even under the lock: half-hash
// first (a single atomic store, done by the caller before calling
// install since it lives on the chunk, not the slot), then key/value,
// then flags = FILLED last, so a concurrent reader that observes FILLED
// is guaranteed to observe a fully written key and value.
func (s *slot) install(keyBuf []byte, keyLen int, value unsafe.Pointer) {
	s.keyLen.Store(uint32(keyLen))
	if len(keyBuf) == 0 {
		s.keyPtr.Store(nil)
	} else {
		s.keyPtr.Store(&keyBuf[0])
	}
	s.storeValue(value)
	s.flags.Store(uint32(flagFilled))
}

// markDeleted sets DELETED before the caller clears the owning chunk's
// half-hash word, so a racing reader sees the slot as absent either way.
func (s *slot) markDeleted() {
	s.flags.Store(uint32(flagDeleted))
}

// clear resets a slot to never-used, after its key has been staged for
// reclamation and the half-hash word zeroed.
func (s *slot) clear() {
	s.flags.Store(0)
	s.keyLen.Store(0)
	s.keyPtr.Store(nil)
	s.storeValue(nil)
}
