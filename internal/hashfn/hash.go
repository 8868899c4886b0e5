// Package hashfn computes the 64-bit key hash and the derived half/quarter
// hashes chunktable uses for its SIMD-style probe.
//
// The primary implementation combines two CRC32C passes into 64 bits:
// the low word is CRC32C(seed0, key), the high word is CRC32C(low, key).
// github.com/klauspost/crc32 already performs the hardware/software
// dispatch the spec calls for (SSE4.2 castagnoli instruction on amd64, the
// ARM64 crc extension, and a table-driven software fallback producing
// bit-identical output), so this package is a thin, typed wrapper around
// it plus the half/quarter derivation.
//
// © 2025 chunktable authors. MIT License.
package hashfn

import (
	crc32 "github.com/klauspost/crc32"
	"github.com/klauspost/cpuid/v2"
)

// seed0 is the fixed seed combined with the key bytes to produce the low
// word of the 64-bit hash.
const seed0 uint32 = 0xA5A5A5A5

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Hash returns the 64-bit hash of key. It never returns a value whose
// derived half-hash would be zero: HalfHash always forces bit 31, so
// invariant 1 (half-hash 0 means empty slot) holds regardless of the
// hash's raw bit pattern.
func Hash(key []byte) uint64 {
	low := crc32.Update(seed0, castagnoliTable, key)
	high := crc32.Update(low, castagnoliTable, key)
	return uint64(high)<<32 | uint64(low)
}

// HalfHash derives the 32-bit probe key from a 64-bit hash: the upper 32
// bits with bit 31 forced to 1, so the all-zero word stays reserved for
// "empty slot".
func HalfHash(hash uint64) uint32 {
	return uint32(hash>>32) | 0x8000_0000
}

// QuarterHash returns the low 16 bits of a half-hash. Informational
// only: logging and diagnostics, never probing.
func QuarterHash(half uint32) uint16 {
	return uint16(half & 0xFFFF)
}

// HardwareAccelerated reports whether the running CPU exposes an
// instruction klauspost/crc32 can use instead of its software table. It
// carries no correctness weight; it's surfaced through pkg/kvtable's
// debug snapshot as a CPU-dispatch diagnostic.
func HardwareAccelerated() bool {
	return cpuid.CPU.Supports(cpuid.SSE42) || cpuid.CPU.Supports(cpuid.CRC32)
}
