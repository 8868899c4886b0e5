// © 2025 chunktable authors. MIT License.

package kvtable

import "context"

// LoaderFunc is invoked by Table.GetOrLoad when a key is absent. It must not
// call Set/Delete/GetOrLoad on the same Table it serves, and should honour
// ctx for cancellation. The same LoaderFunc may run concurrently for
// different keys; it must be safe for that.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)
