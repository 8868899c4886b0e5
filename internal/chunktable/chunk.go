// © 2025 chunktable authors. MIT License.

package chunktable

import (
	"sync/atomic"

	"github.com/kvcore/chunktable/internal/spinlock"
)

// chunk is a fixed group of 14 slots: the 14 half-hash words compared in
// parallel by internal/probe (56 bytes), plus the chunk metadata (write
// lock, is-full flag, changes counter, occupancy counter, overflow
// counter). The struct is 80 bytes, so it does not fit in a single
// 64-byte cache line; the metadata spills into the next one.
type chunk struct {
	halfHashes [SlotsPerChunk]atomic.Uint32

	lock                    spinlock.Lock
	isFull                  atomic.Bool
	changesCounter          atomic.Uint32
	slotsOccupied           atomic.Uint32
	overflowedChunksCounter atomic.Uint32
}

// snapshot copies the 14 half-hashes (56 bytes) into a local array for
// the probe, one atomic load per word. The copy as a whole is not
// atomic: a concurrent writer's stores may be reflected in some words
// and not others.
func (c *chunk) snapshot() [SlotsPerChunk]uint32 {
	var v [SlotsPerChunk]uint32
	for i := range v {
		v[i] = c.halfHashes[i].Load()
	}
	return v
}
