// © 2025 chunktable authors. MIT License.

package xalloc

import "golang.org/x/sys/unix"

// hugeTLBFlags requests 2 MiB huge-page backing for an anonymous mapping.
const hugeTLBFlags = unix.MAP_HUGETLB | unix.MAP_HUGE_2MB
