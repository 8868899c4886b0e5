// © 2025 chunktable authors. MIT License.

package chunktable

import "unsafe"

// Entry is one key/value pair surfaced by an Iterator.
type Entry struct {
	Key   []byte
	Value unsafe.Pointer
}

// Iterator walks every filled slot of the current generation, bucket
// order. It takes no lock: a concurrent writer may cause it to miss an
// entry inserted after the walk passed its chunk, or to see one deleted
// after the walk started. This snapshotting is explicitly best-effort.
type Iterator struct {
	gens     []*data
	chunkIdx uint64
	slotIdx  int
}

// Iter returns a new best-effort iterator over the table's current
// generation. During a resize the
// old generation's chunks follow the current generation's, so a
// migration loop can reach entries not yet re-inserted; an entry present
// in both generations is then surfaced twice.
func (t *Table) Iter() *Iterator {
	gens := []*data{t.cur.Load()}
	if t.isResizing.Load() {
		if old := t.old.Load(); old != nil {
			gens = append(gens, old)
		}
	}
	return &Iterator{gens: gens}
}

// OldEntries returns an iterator over the old generation only, or an
// exhausted iterator when no resize is in flight. It exists for
// migration loops: walk what has not been moved yet, re-Set each entry
// into the current generation, then CompleteResize.
func (t *Table) OldEntries() *Iterator {
	if !t.isResizing.Load() {
		return &Iterator{}
	}
	old := t.old.Load()
	if old == nil {
		return &Iterator{}
	}
	return &Iterator{gens: []*data{old}}
}

// Next advances the iterator and returns the next filled entry, or false
// once every chunk has been visited.
func (it *Iterator) Next() (Entry, bool) {
	for len(it.gens) > 0 {
		gen := it.gens[0]
		for it.chunkIdx < gen.chunksCount {
			slots := gen.slotsForChunk(it.chunkIdx)
			for it.slotIdx < SlotsPerChunk {
				s := &slots[it.slotIdx]
				it.slotIdx++
				if s.loadFlags() == flagFilled {
					return Entry{Key: s.key(), Value: s.loadValue()}, true
				}
			}
			it.slotIdx = 0
			it.chunkIdx++
		}
		it.gens = it.gens[1:]
		it.chunkIdx = 0
		it.slotIdx = 0
	}
	return Entry{}, false
}
