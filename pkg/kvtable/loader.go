package kvtable

// loader.go de-duplicates concurrent misses on the same key via
// singleflight, so a thundering herd of GetOrLoad calls for the same
// absent key runs the loader once and shares its result.
//
// © 2025 chunktable authors. MIT License.

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"
)

type loaderGroup[K comparable, V any] struct {
	g singleflight.Group
}

func newLoaderGroup[K comparable, V any]() *loaderGroup[K, V] {
	return &loaderGroup[K, V]{}
}

// load executes fn exactly once for the given key hash across all waiters.
func (lg *loaderGroup[K, V]) load(ctx context.Context, keyHash uint64, key K, fn LoaderFunc[K, V]) (val V, err error, shared bool) {
	k := strconv.FormatUint(keyHash, 16)
	res, err, shared := lg.g.Do(k, func() (any, error) {
		return fn(ctx, key)
	})
	if err != nil {
		return val, err, shared
	}
	if ctx.Err() != nil {
		return val, ctx.Err(), shared
	}
	return res.(V), nil, shared
}
