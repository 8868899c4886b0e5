// © 2025 chunktable authors. MIT License.

package chunktable

import (
	"unsafe"

	"github.com/kvcore/chunktable/internal/hashfn"
	"github.com/kvcore/chunktable/internal/probe"
	"github.com/kvcore/chunktable/internal/xstring"
)

// searchOnly is the lock-free read path: walk the anchor chunk and its
// overflow chain, returning the matching slot or nil.
func searchOnly(gen *data, key []byte, hash uint64) *slot {
	half := hashfn.HalfHash(hash)
	anchor := gen.anchorChunk(hash)
	overflow := uint64(gen.chunks[anchor].overflowedChunksCounter.Load())

	for c := anchor; c <= anchor+overflow && c < gen.chunksCount; c++ {
		ch := &gen.chunks[c]
		snap := ch.snapshot()
		slots := gen.slotsForChunk(c)

		var skip uint32
		for {
			idx := probe.Match(half, &snap, skip)
			if idx == probe.None {
				break
			}
			skip |= 1 << uint(idx)

			s := &slots[idx]
			flags := s.loadFlags()
			if flags == 0 {
				// Never used: nothing past here in this chunk can match.
				break
			}
			if flags&flagDeleted != 0 {
				continue
			}
			if int(s.keyLen.Load()) == len(key) && xstring.Equal(s.key(), key) {
				return s
			}
		}
	}
	return nil
}

// Get returns the value handle stored for key, if any. It takes no
// locks.
func (t *Table) Get(key []byte) (unsafe.Pointer, bool) {
	hash := hashfn.Hash(key)
	if s := searchOnly(t.cur.Load(), key, hash); s != nil {
		return s.loadValue(), true
	}
	if t.isResizing.Load() {
		if old := t.old.Load(); old != nil {
			if s := searchOnly(old, key, hash); s != nil {
				return s.loadValue(), true
			}
		}
	}
	return nil, false
}

// lockedEntry records one chunk this call has locked, in acquisition
// order, so the group can be released correctly at the end of the
// call.
type lockedEntry struct {
	idx uint64
	ch  *chunk
}

// searchOrCreate is the shared write path: pass 1 locates an existing
// key under chunk locks taken in increasing index order, pass 2 places
// a new entry in the first free slot of the bounded search window,
// still holding every lock from pass 1. It returns the slot holding
// the key (existing or newly placed), the chunk whose lock is still held
// by the caller on success, and whether the entry was newly created. The
// caller must unlock the returned chunk once it has finished with the
// slot.
func (t *Table) searchOrCreate(key []byte, hash uint64, value unsafe.Pointer) (s *slot, ch *chunk, created bool, err error) {
	gen := t.cur.Load()
	half := hashfn.HalfHash(hash)
	anchor := gen.anchorChunk(hash)

	var locked []lockedEntry
	lockedIndex := func(idx uint64) *chunk {
		for _, le := range locked {
			if le.idx == idx {
				return le.ch
			}
		}
		return nil
	}
	lockChunk := func(idx uint64) *chunk {
		c := &gen.chunks[idx]
		c.lock.Lock()
		locked = append(locked, lockedEntry{idx: idx, ch: c})
		return c
	}
	unlockAllExcept := func(keep *chunk) {
		for _, le := range locked {
			if le.ch != keep {
				le.ch.lock.Unlock()
			}
		}
	}

	anchorChunk := lockChunk(anchor)
	overflow := uint64(anchorChunk.overflowedChunksCounter.Load())

	var firstFree uint64
	firstFreeSet := false

	// Pass 1: locate an existing key, recording the first chunk seen
	// with a free slot along the way.
	for c := anchor; c <= anchor+overflow && c < gen.chunksCount; c++ {
		cc := lockedIndex(c)
		if cc == nil {
			cc = lockChunk(c)
		}
		snap := cc.snapshot()
		slots := gen.slotsForChunk(c)

		if !firstFreeSet {
			for _, hh := range snap {
				if hh == 0 {
					firstFree = c
					firstFreeSet = true
					break
				}
			}
		}

		var skip uint32
		for {
			idx := probe.Match(half, &snap, skip)
			if idx == probe.None {
				break
			}
			skip |= 1 << uint(idx)

			slotv := &slots[idx]
			flags := slotv.loadFlags()
			if flags == 0 {
				break
			}
			if flags&flagDeleted != 0 {
				continue
			}
			if int(slotv.keyLen.Load()) == len(key) && xstring.Equal(slotv.key(), key) {
				unlockAllExcept(cc)
				return slotv, cc, false, nil
			}
		}
	}

	if !firstFreeSet {
		firstFree = anchor
	}

	// Pass 2: place into the first free slot found scanning from
	// firstFree up to the bounded search window.
	limit := anchor + SearchMax - 1
	for c := firstFree; c <= limit && c < gen.chunksCount; c++ {
		cc := lockedIndex(c)
		if cc == nil {
			cc = lockChunk(c)
		}
		snap := cc.snapshot()
		slots := gen.slotsForChunk(c)

		idx := probe.Match(0, &snap, 0)
		if idx == probe.None {
			continue
		}

		cc.halfHashes[idx].Store(half)

		keyBuf := t.slab.Get(len(key))
		copy(keyBuf, key)
		t.pinKey(keyBuf)
		slotv := &slots[idx]
		slotv.install(keyBuf, len(key), value)

		if c > anchor {
			for {
				cur := anchorChunk.overflowedChunksCounter.Load()
				want := uint32(c - anchor)
				if cur >= want {
					break
				}
				if anchorChunk.overflowedChunksCounter.CompareAndSwap(cur, want) {
					break
				}
			}
		}

		cc.slotsOccupied.Add(1)
		if cc.slotsOccupied.Load() == SlotsPerChunk {
			cc.isFull.Store(true)
		}
		cc.changesCounter.Add(1)

		unlockAllExcept(cc)
		return slotv, cc, true, nil
	}

	unlockAllExcept(nil)
	return nil, nil, false, ErrOutOfSpace
}

// Set inserts or overwrites the value handle for key, returning the
// previous handle when it overwrote one.
func (t *Table) Set(key []byte, value unsafe.Pointer) (prev unsafe.Pointer, err error) {
	if err := t.validateKey(key); err != nil {
		return nil, err
	}

	hash := hashfn.Hash(key)
	s, ch, created, err := t.searchOrCreate(key, hash, value)
	if err != nil {
		return nil, err
	}
	if created {
		ch.lock.Unlock()
		return nil, nil
	}

	prev = s.loadValue()
	s.storeValue(value)
	ch.changesCounter.Add(1)
	ch.lock.Unlock()
	return prev, nil
}

// Delete removes key, returning its previous value handle. h stages the
// deleted key's buffer for deferred reclamation; pass nil only in tests
// that don't care about reclaiming it (the buffer then stays pinned for
// the process lifetime). During a resize the old generation is consulted
// too, so an entry not yet migrated can still be removed.
func (t *Table) Delete(h *Handle, key []byte) (unsafe.Pointer, bool) {
	hash := hashfn.Hash(key)
	if prev, ok := t.deleteIn(t.cur.Load(), h, key, hash); ok {
		return prev, true
	}
	if t.isResizing.Load() {
		if old := t.old.Load(); old != nil {
			return t.deleteIn(old, h, key, hash)
		}
	}
	return nil, false
}

func (t *Table) deleteIn(gen *data, h *Handle, key []byte, hash uint64) (unsafe.Pointer, bool) {
	half := hashfn.HalfHash(hash)
	anchor := gen.anchorChunk(hash)
	overflow := uint64(gen.chunks[anchor].overflowedChunksCounter.Load())

	for c := anchor; c <= anchor+overflow && c < gen.chunksCount; c++ {
		ch := &gen.chunks[c]
		ch.lock.Lock()

		snap := ch.snapshot()
		slots := gen.slotsForChunk(c)

		var skip uint32
		var foundIdx = probe.None
		for {
			idx := probe.Match(half, &snap, skip)
			if idx == probe.None {
				break
			}
			skip |= 1 << uint(idx)

			s := &slots[idx]
			flags := s.loadFlags()
			if flags == 0 {
				break
			}
			if flags&flagDeleted != 0 {
				continue
			}
			if int(s.keyLen.Load()) == len(key) && xstring.Equal(s.key(), key) {
				foundIdx = idx
				break
			}
		}

		if foundIdx == probe.None {
			ch.lock.Unlock()
			continue
		}

		s := &slots[foundIdx]
		prev := s.loadValue()
		keyBuf := s.key()

		s.markDeleted()
		ch.halfHashes[foundIdx].Store(0)
		ch.isFull.Store(false)
		ch.slotsOccupied.Add(^uint32(0)) // -1, two's complement wraparound
		ch.changesCounter.Add(1)
		ch.lock.Unlock()

		if h != nil && keyBuf != nil {
			h.tc.Stage(keyBuf)
		}
		return prev, true
	}
	return nil, false
}

// Len sums per-chunk occupancy across the current generation, plus the
// old generation's while a resize is in flight.
func (t *Table) Len() int {
	var n int
	gen := t.cur.Load()
	for i := range gen.chunks {
		n += int(gen.chunks[i].slotsOccupied.Load())
	}
	if t.isResizing.Load() {
		if old := t.old.Load(); old != nil {
			for i := range old.chunks {
				n += int(old.chunks[i].slotsOccupied.Load())
			}
		}
	}
	return n
}
