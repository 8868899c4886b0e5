// © 2025 chunktable authors. MIT License.

package chunktable

import (
	"fmt"
	"unsafe"

	"github.com/kvcore/chunktable/internal/unsafehelpers"
	"github.com/kvcore/chunktable/internal/xalloc"
)

// SlotsPerChunk is the fixed number of slots per chunk: 14 half-hash
// words (56 bytes) per chunk.
const SlotsPerChunk = 14

// SearchMax bounds how many chunks past the anchor a write operation
// may examine before giving up with ErrOutOfSpace.
const SearchMax = 32

// data is one generation of hash table storage: a fixed array of
// chunks and a parallel array of key/value
// slots, both sized once at construction and never resized. The two
// arrays are carved out of page-aligned xalloc regions rather than
// plain Go slices. They're two separate regions rather than one
// combined allocation, since the two element types differ in size and
// alignment and Go has no portable way to interleave them in a single
// typed view.
type data struct {
	bucketsCount     uint64
	bucketsCountReal uint64
	chunksCount      uint64

	chunksRegion *xalloc.Region
	slotsRegion  *xalloc.Region

	chunks []chunk
	slots  []slot
}

func newData(bucketsCount uint64, hugePages bool) (*data, error) {
	if !unsafehelpers.IsPowerOfTwo(bucketsCount) {
		return nil, fmt.Errorf("%w: buckets count %d is not a power of two", ErrInvalidArgument, bucketsCount)
	}

	// Trailing chunks past the logical end host overflow chains that
	// start near the tail, so probes never wrap around. The %14 term
	// does not always round bucketsCountReal to an exact multiple of 14;
	// the SearchMax*14 pad more than absorbs the few unit slack slots,
	// and chunksCount truncates down, so no chunk ever indexes past the
	// allocated slot array.
	bucketsCountReal := bucketsCount + bucketsCount%SlotsPerChunk + SearchMax*SlotsPerChunk
	chunksCount := bucketsCountReal / SlotsPerChunk

	chunkSize := uint64(unsafe.Sizeof(chunk{}))
	slotSize := uint64(unsafe.Sizeof(slot{}))

	alloc := xalloc.New
	if hugePages {
		alloc = xalloc.NewHuge
	}
	chunksRegion, err := alloc(uintptr(chunksCount * chunkSize))
	if err != nil {
		return nil, fmt.Errorf("chunktable: allocating chunk array: %w", err)
	}
	slotsRegion, err := alloc(uintptr(bucketsCountReal * slotSize))
	if err != nil {
		chunksRegion.Free()
		return nil, fmt.Errorf("chunktable: allocating slot array: %w", err)
	}

	d := &data{
		bucketsCount:     bucketsCount,
		bucketsCountReal: bucketsCountReal,
		chunksCount:      chunksCount,
		chunksRegion:     chunksRegion,
		slotsRegion:      slotsRegion,
		chunks:           unsafehelpers.PtrSlice((*chunk)(unsafe.Pointer(&chunksRegion.Bytes()[0])), int(chunksCount)),
		slots:            unsafehelpers.PtrSlice((*slot)(unsafe.Pointer(&slotsRegion.Bytes()[0])), int(bucketsCountReal)),
	}
	return d, nil
}

func (d *data) free() {
	d.chunksRegion.Free()
	d.slotsRegion.Free()
}

// bucketIndex maps a 64-bit hash to a bucket index of this generation:
// a power-of-two mask, no modulo.
func (d *data) bucketIndex(hash uint64) uint64 {
	return hash & (d.bucketsCount - 1)
}

// anchorChunk returns the chunk that owns a key by hash.
func (d *data) anchorChunk(hash uint64) uint64 {
	return d.bucketIndex(hash) / SlotsPerChunk
}

// slotsForChunk returns the 14 slots backing chunk index c.
func (d *data) slotsForChunk(c uint64) []slot {
	start := c * SlotsPerChunk
	return d.slots[start : start+SlotsPerChunk]
}
