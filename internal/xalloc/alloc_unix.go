//go:build unix

// © 2025 chunktable authors. MIT License.

package xalloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// regionImpl on unix platforms holds the full mmap'd slice (before any
// trimming to the caller's requested size) so Free can munmap it.
type regionImpl struct {
	full []byte
}

func newRegion(size uintptr) (*Region, error) {
	aligned := AlignUp(size)
	data, err := unix.Mmap(-1, 0, int(aligned), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("xalloc: mmap %d bytes: %w", aligned, err)
	}
	return &Region{
		data: data[:size],
		impl: regionImpl{full: data},
	}, nil
}

// hugePageSize is the 2 MiB huge-page granularity spec'd by the
// use_huge_pages_2m knob; a huge mapping's length must be a multiple of it.
const hugePageSize = 2 << 20

func newRegionHuge(size uintptr) (*Region, error) {
	if hugeTLBFlags == 0 {
		return newRegion(size)
	}
	aligned := (size + hugePageSize - 1) &^ uintptr(hugePageSize-1)
	data, err := unix.Mmap(-1, 0, int(aligned), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|hugeTLBFlags)
	if err != nil {
		// Typically ENOMEM when no huge pages are reserved; fall back.
		return newRegion(size)
	}
	return &Region{
		data: data[:size],
		impl: regionImpl{full: data},
	}, nil
}

func (impl regionImpl) free() error {
	return unix.Munmap(impl.full)
}
