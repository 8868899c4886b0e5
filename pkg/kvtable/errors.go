// © 2025 chunktable authors. MIT License.

package kvtable

import (
	"errors"

	"github.com/kvcore/chunktable/internal/chunktable"
)

// ErrOutOfSpace is returned by Set when the table's bounded overflow
// window is exhausted.
var ErrOutOfSpace = chunktable.ErrOutOfSpace

// ErrInvalidArgument is returned for a nil key or a key over the
// configured maximum length.
var ErrInvalidArgument = chunktable.ErrInvalidArgument

var (
	errInvalidBuckets = errors.New("kvtable: initial buckets must be > 0")
	errInvalidMaxKey  = errors.New("kvtable: max key length must be between 1 and 65535")
)
