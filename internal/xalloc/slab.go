// © 2025 chunktable authors. MIT License.

package xalloc

import "sync"

// KeySlab hands out reusable []byte buffers for key storage. A key buffer
// handed to hashtable storage must not be returned to the slab until every
// reader that could still be dereferencing it has moved on — that ordering
// is internal/epoch's job, not this package's. KeySlab only knows how to
// grow and reuse buffers; it has no notion of "is it safe yet".
//
// The slab also does not keep checked-out buffers alive: its sync.Pool
// holds returned buffers only. A buffer whose sole reference is an
// off-heap slot pointer must be rooted by the caller (the table's pin
// registry) or the Go garbage collector will reclaim it out from under
// concurrent readers.
type KeySlab struct {
	pool sync.Pool
}

// NewKeySlab returns a slab whose buffers start at the given capacity.
func NewKeySlab(initialCap int) *KeySlab {
	if initialCap <= 0 {
		initialCap = 64
	}
	s := &KeySlab{}
	s.pool.New = func() any {
		b := make([]byte, 0, initialCap)
		return &b
	}
	return s
}

// Get returns a buffer with at least n bytes of capacity, truncated to
// length n. The contents are not zeroed; callers overwrite it fully.
func (s *KeySlab) Get(n int) []byte {
	bp := s.pool.Get().(*[]byte)
	b := *bp
	if cap(b) < n {
		b = make([]byte, n)
	} else {
		b = b[:n]
	}
	return b
}

// Put returns a buffer to the slab for reuse. The caller must guarantee no
// concurrent reader can still observe it — internal/epoch enforces this by
// staging the buffer and only calling Put once the GC epoch has advanced
// past every reader that could have seen it.
func (s *KeySlab) Put(b []byte) {
	b = b[:0]
	s.pool.Put(&b)
}
