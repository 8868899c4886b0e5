// Package xalloc allocates the fixed-size backing arrays chunktable's
// hash table data needs: a flat array of chunks and a flat array of
// key/value slots, sized once at table creation and never resized.
//
// The backing memory is page-aligned, anonymous mmap on unix platforms,
// so the arrays live outside the Go GC's heap and never move; everywhere
// else it is a plain Go slice on the Go heap.
//
// © 2025 chunktable authors. MIT License.
package xalloc

import "fmt"

// PageSize is the allocation granularity an mmap-backed Region rounds up
// to. On platforms without mmap support this value is advisory only.
const PageSize = 4096

// AlignUp rounds size up to the next multiple of PageSize.
func AlignUp(size uintptr) uintptr {
	if size == 0 {
		return PageSize
	}
	return (size + PageSize - 1) &^ (PageSize - 1)
}

// Region is a fixed-size block of zeroed memory, exposed as a []byte.
// Callers reinterpret slices of it via unsafe, the way a C allocator
// hands back a raw pointer for the caller to cast.
type Region struct {
	data []byte
	impl regionImpl
}

// Bytes returns the region's backing memory.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the region's size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Free releases the region's backing memory. After Free, Bytes must not
// be accessed.
func (r *Region) Free() error {
	return r.impl.free()
}

// New allocates a zeroed region of at least size bytes.
func New(size uintptr) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("xalloc: zero-size allocation requested")
	}
	return newRegion(size)
}

// NewHuge allocates a zeroed region backed by 2 MiB huge pages where the
// platform supports them. When it doesn't — or when the system has no
// huge pages reserved — the allocation silently falls back to ordinary
// pages: huge-page backing is a throughput knob, never a correctness
// requirement.
func NewHuge(size uintptr) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("xalloc: zero-size allocation requested")
	}
	return newRegionHuge(size)
}
