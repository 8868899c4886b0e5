// © 2025 chunktable authors. MIT License.

package kvtable

import (
	"unsafe"

	"github.com/kvcore/chunktable/internal/chunktable"
)

// Entry is one key/value pair surfaced by an Iterator.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Iterator walks every live entry in the table without taking a lock;
// it may miss an entry inserted, or see one deleted, after the walk
// passed its chunk. K must be decodable from the raw key bytes (string
// and []byte keys round-trip directly; other comparable K must match
// keyBytes' scalar byte view).
type Iterator[K comparable, V any] struct {
	inner *chunktable.Iterator
}

// Iter returns a new best-effort iterator over the table.
func (t *Table[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{inner: t.inner.Iter()}
}

// Next advances the iterator, returning the next entry or false once
// every chunk has been visited.
func (it *Iterator[K, V]) Next() (Entry[K, V], bool) {
	e, ok := it.inner.Next()
	if !ok {
		return Entry[K, V]{}, false
	}
	var key K
	switch any(key).(type) {
	case string:
		key = any(string(e.Key)).(K)
	case []byte:
		key = any(e.Key).(K)
	default:
		if len(e.Key) > 0 && int(unsafe.Sizeof(key)) == len(e.Key) {
			key = *(*K)(unsafe.Pointer(&e.Key[0]))
		}
	}
	return Entry[K, V]{Key: key, Value: *(*V)(e.Value)}, true
}
