// © 2025 chunktable authors. MIT License.

package kvtable

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the Prometheus backend so the hot path does not pay
// for metric updates when the caller never asked for a registry. Gauges
// that are expensive to maintain per-operation (live entry count, GC
// collector totals) are registered as GaugeFuncs sampled at scrape time
// instead of being pushed on every Set/Delete.
type metricsSink interface {
	incHit()
	incMiss()
	incSet()
	incDelete()
	incOutOfSpace()
}

type noopMetrics struct{}

func (noopMetrics) incHit()        {}
func (noopMetrics) incMiss()       {}
func (noopMetrics) incSet()        {}
func (noopMetrics) incDelete()     {}
func (noopMetrics) incOutOfSpace() {}

type promMetrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	sets       prometheus.Counter
	deletes    prometheus.Counter
	outOfSpace prometheus.Counter
}

func newPromMetrics(reg *prometheus.Registry, entries, gcCollected func() float64) *promMetrics {
	pm := &promMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtable",
			Name:      "hits_total",
			Help:      "Number of Get calls that found the key.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtable",
			Name:      "misses_total",
			Help:      "Number of Get calls that did not find the key.",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtable",
			Name:      "sets_total",
			Help:      "Number of Set calls.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtable",
			Name:      "deletes_total",
			Help:      "Number of successful Delete calls.",
		}),
		outOfSpace: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvtable",
			Name:      "out_of_space_total",
			Help:      "Number of Set calls rejected with ErrOutOfSpace.",
		}),
	}
	length := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "kvtable",
		Name:      "entries",
		Help:      "Number of live entries in the table.",
	}, entries)
	collected := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "kvtable",
		Name:      "gc_collected_objects",
		Help:      "Cumulative number of key buffers reclaimed by the epoch collector.",
	}, gcCollected)
	reg.MustRegister(pm.hits, pm.misses, pm.sets, pm.deletes, pm.outOfSpace, length, collected)
	return pm
}

func (m *promMetrics) incHit()        { m.hits.Inc() }
func (m *promMetrics) incMiss()       { m.misses.Inc() }
func (m *promMetrics) incSet()        { m.sets.Inc() }
func (m *promMetrics) incDelete()     { m.deletes.Inc() }
func (m *promMetrics) incOutOfSpace() { m.outOfSpace.Inc() }

func newMetricsSink(reg *prometheus.Registry, entries, gcCollected func() float64) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg, entries, gcCollected)
}
