// © 2025 chunktable authors. MIT License.

package probe

import (
	"math/rand"
	"testing"
)

// TestMatchAgreesWithScalar cross-checks the probe paths: the word-parallel one
// and the scalar fallback must return identical results for every needle,
// chunk contents, and skip mask.
func TestMatchAgreesWithScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	randomChunk := func() *[NumSlots]uint32 {
		var c [NumSlots]uint32
		for i := range c {
			if rng.Intn(4) == 0 {
				c[i] = 0 // leave some slots empty
				continue
			}
			c[i] = rng.Uint32() | 0x8000_0000
		}
		return &c
	}

	skipMasks := func(needle uint32) []uint32 {
		masks := []uint32{0, ^uint32(0)}
		for k := 0; k < NumSlots; k++ {
			masks = append(masks, 1<<uint(k))
		}
		// all-but-one, for every slot.
		for k := 0; k < NumSlots; k++ {
			masks = append(masks, (^uint32(0))&^(1<<uint(k)))
		}
		return masks
	}

	for trial := 0; trial < 500; trial++ {
		chunk := randomChunk()
		needle := chunk[rng.Intn(NumSlots)]
		if needle == 0 {
			needle = rng.Uint32() | 0x8000_0000
		}

		for _, mask := range skipMasks(needle) {
			got := Match(needle, chunk, mask)
			want := MatchScalar(needle, chunk, mask)
			if got != want {
				t.Fatalf("trial %d: Match(%x, %v, %x) = %d, want %d (MatchScalar)",
					trial, needle, chunk, mask, got, want)
			}
		}
	}
}

func TestMatchNoneWhenAbsent(t *testing.T) {
	var chunk [NumSlots]uint32
	for i := range chunk {
		chunk[i] = uint32(i+1) | 0x8000_0000
	}
	if got := Match(0xFFFF_FFFF, &chunk, 0); got != None {
		t.Fatalf("Match found absent needle at slot %d", got)
	}
	if got := MatchScalar(0xFFFF_FFFF, &chunk, 0); got != None {
		t.Fatalf("MatchScalar found absent needle at slot %d", got)
	}
}

func TestMatchSkipsMaskedSlots(t *testing.T) {
	var chunk [NumSlots]uint32
	needle := uint32(0x9000_0001)
	chunk[3] = needle
	chunk[9] = needle

	// Skip slot 3: should find slot 9 instead.
	got := Match(needle, &chunk, 1<<3)
	if got != 9 {
		t.Fatalf("Match with slot 3 skipped = %d, want 9", got)
	}

	// Skip both: should find nothing.
	got = Match(needle, &chunk, 1<<3|1<<9)
	if got != None {
		t.Fatalf("Match with both slots skipped = %d, want None", got)
	}
}

func TestMatchFindsLowestIndex(t *testing.T) {
	var chunk [NumSlots]uint32
	needle := uint32(0xA000_0002)
	chunk[5] = needle
	chunk[6] = needle
	chunk[12] = needle

	got := Match(needle, &chunk, 0)
	if got != 5 {
		t.Fatalf("Match = %d, want lowest index 5", got)
	}
}

func BenchmarkMatch(b *testing.B) {
	var chunk [NumSlots]uint32
	for i := range chunk {
		chunk[i] = uint32(i+1) | 0x8000_0000
	}
	needle := chunk[13]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Match(needle, &chunk, 0)
	}
}

func BenchmarkMatchScalar(b *testing.B) {
	var chunk [NumSlots]uint32
	for i := range chunk {
		chunk[i] = uint32(i+1) | 0x8000_0000
	}
	needle := chunk[13]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MatchScalar(needle, &chunk, 0)
	}
}
