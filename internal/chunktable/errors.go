// © 2025 chunktable authors. MIT License.

package chunktable

import "errors"

// ErrInvalidArgument covers argument failures: a non-power-of-two bucket
// count reaching the storage constructor, a nil key or a key past the
// configured maximum length passed to Set, and a Resize started while
// another is in progress.
var ErrInvalidArgument = errors.New("chunktable: invalid argument")

// ErrOutOfSpace is returned by Set when the bounded search window past
// the anchor chunk is exhausted without finding a free slot. It is the
// only non-fatal Set failure; there is no automatic retry or resize.
var ErrOutOfSpace = errors.New("chunktable: out of space")
