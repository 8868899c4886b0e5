// Package bench provides reproducible micro-benchmarks for chunktable.
// Run via:  go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks use a single key/value shape so results are comparable
// across versions:
//   Key   - uint64 (cheap to view as bytes, fits in a register)
//   Value - 64-byte struct (large enough to matter, small enough to fit
//           comfortably inside one chunk's working set)
//
// We measure:
//   1. Set         - write-only workload
//   2. Get         - read-only workload (after warm-up)
//   3. GetParallel - highly concurrent reads (b.RunParallel)
//   4. GetOrLoad   - 90% hits, 10% misses with loader cost
//
// NOTE: unit tests live alongside the packages under test; this file is
// only for performance.
//
// © 2025 chunktable authors. MIT License.
package bench

import (
	"context"
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/kvcore/chunktable/pkg/kvtable"
)

type value64 struct {
	_ [64]byte
}

const keys = 1 << 20 // 1M keys for the dataset

func newTestTable() *kvtable.Table[uint64, value64] {
	tbl, err := kvtable.New[uint64, value64](keys * 2)
	if err != nil {
		panic(err)
	}
	return tbl
}

// global dataset reused across benches to avoid reallocating large slices.
var ds = func() []uint64 {
	r := rand.New(rand.NewSource(42))
	arr := make([]uint64, keys)
	for i := range arr {
		arr[i] = r.Uint64()
	}
	return arr
}()

func BenchmarkSet(b *testing.B) {
	tbl := newTestTable()
	val := value64{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(keys-1)]
		tbl.Set(key, val)
	}
	tbl.Close()
}

func BenchmarkGet(b *testing.B) {
	tbl := newTestTable()
	val := value64{}
	for _, k := range ds {
		tbl.Set(k, val)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		tbl.Get(k)
	}
	tbl.Close()
}

func BenchmarkGetParallel(b *testing.B) {
	tbl := newTestTable()
	val := value64{}
	for _, k := range ds {
		tbl.Set(k, val)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			tbl.Get(ds[idx])
		}
	})
	tbl.Close()
}

func BenchmarkGetOrLoad(b *testing.B) {
	tbl := newTestTable()
	val := value64{}
	for i, k := range ds {
		if i%10 != 0 { // 90% fill, simulating a mixed hit/miss workload
			tbl.Set(k, val)
		}
	}
	var loaderCnt atomic.Uint64
	loader := func(ctx context.Context, key uint64) (value64, error) {
		loaderCnt.Add(1)
		return val, nil
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keys-1)]
		tbl.GetOrLoad(context.Background(), k, loader)
	}
	tbl.Close()
	b.ReportMetric(float64(loaderCnt.Load())/float64(b.N)*100, "miss-%")
}

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
}
