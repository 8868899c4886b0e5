package kvtable

// debug.go exposes the diagnostic snapshot cmd/chunktable-inspect reads:
// mount DebugHandler() at /debug/chunktable/snapshot on any mux and the
// inspector's one-shot and watch modes work against the process.
//
// © 2025 chunktable authors. MIT License.

import (
	"encoding/json"
	"net/http"

	"github.com/kvcore/chunktable/internal/hashfn"
)

// Snapshot is a point-in-time view of the table's counters and sizing,
// serialised for the inspector. Field names match the Prometheus metric
// names so dashboards and the CLI agree on vocabulary.
type Snapshot struct {
	Entries      int    `json:"entries"`
	BucketsCount uint64 `json:"buckets_count"`
	Hits         uint64 `json:"hits_total"`
	Misses       uint64 `json:"misses_total"`
	Sets         uint64 `json:"sets_total"`
	Deletes      uint64 `json:"deletes_total"`
	OutOfSpace   uint64 `json:"out_of_space_total"`
	GCCollected  uint64 `json:"gc_collected_objects"`
	HardwareCRC  bool   `json:"hardware_crc32c"`
}

// Snapshot returns the table's current diagnostic counters. Entries walks
// every chunk's occupancy counter, so call it at inspection cadence, not
// per operation.
func (t *Table[K, V]) Snapshot() Snapshot {
	return Snapshot{
		Entries:      t.inner.Len(),
		BucketsCount: t.inner.BucketsCount(),
		Hits:         t.stats.hits.Load(),
		Misses:       t.stats.misses.Load(),
		Sets:         t.stats.sets.Load(),
		Deletes:      t.stats.deletes.Load(),
		OutOfSpace:   t.stats.outOfSpace.Load(),
		GCCollected:  t.inner.Stats().CollectedObjects,
		HardwareCRC:  hashfn.HardwareAccelerated(),
	}
}

// DebugHandler serves the snapshot as JSON.
func (t *Table[K, V]) DebugHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t.Snapshot())
	})
}
