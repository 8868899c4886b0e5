// © 2025 chunktable authors. MIT License.

package kvtable

import (
	"unsafe"

	"github.com/kvcore/chunktable/internal/unsafehelpers"
)

// keyBytes renders a generic comparable key as the opaque byte
// sequence internal/chunktable hashes and stores. string and []byte
// avoid a copy into an intermediate buffer;
// any other comparable type is viewed through its in-memory
// representation, the same type-switch technique used for hashing keys
// elsewhere in this codebase, generalized from producing a hash to
// producing the bytes to be hashed.
//
// Viewing a scalar's bytes this way is only safe for keys with no
// pointer-shaped fields (structs of scalars, arrays, fixed-size byte
// blobs); a K containing a pointer, slice, map, or interface field would
// have its address, not its value, captured in the byte view. Callers
// storing such keys should marshal to a string or []byte themselves.
func keyBytes[K comparable](key K) []byte {
	switch k := any(key).(type) {
	case string:
		return unsafehelpers.StringToBytes(k)
	case []byte:
		return k
	default:
		ptr := unsafe.Pointer(&key)
		size := unsafe.Sizeof(key)
		return unsafe.Slice((*byte)(ptr), size)
	}
}
