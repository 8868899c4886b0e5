//go:build unix && !linux

// © 2025 chunktable authors. MIT License.

package xalloc

// Only linux exposes MAP_HUGETLB; elsewhere NewHuge degrades to ordinary
// pages.
const hugeTLBFlags = 0
