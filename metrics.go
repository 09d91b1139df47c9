// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import "github.com/prometheus/client_golang/prometheus"

// ScanMetrics is an optional Prometheus instrumentation hook a caller can
// attach to ParseOptions/ScanOptions/HashTableOptions. Nil-safe: every
// observe method on a nil *ScanMetrics is a no-op, so instrumentation is
// strictly additive to the core scan (§5: metrics never gate or mutate scan
// behavior).
type ScanMetrics struct {
	mainRecords     *prometheus.CounterVec
	reconstructed   *prometheus.CounterVec
	diagnostics     prometheus.Counter
	hashTableHits   prometheus.Counter
	scansObserved   prometheus.Counter
}

// NewScanMetrics registers the core's counters against reg and returns a
// ready-to-use ScanMetrics. Callers that don't want Prometheus at all simply
// never construct one and pass a nil *ScanMetrics instead.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	m := &ScanMetrics{
		mainRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esmscan",
			Name:      "main_records_total",
			Help:      "Main records detected, by signature.",
		}, []string{"signature"}),
		reconstructed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esmscan",
			Name:      "reconstructed_entities_total",
			Help:      "Reconstructed domain entities, by kind.",
		}, []string{"kind"}),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmscan",
			Name:      "diagnostics_total",
			Help:      "Record-local diagnostics recorded across all scans.",
		}),
		hashTableHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmscan",
			Name:      "hashtable_entries_total",
			Help:      "Runtime hash-table entries recovered.",
		}),
		scansObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "esmscan",
			Name:      "scans_total",
			Help:      "Completed scans of any kind.",
		}),
	}
	reg.MustRegister(m.mainRecords, m.reconstructed, m.diagnostics, m.hashTableHits, m.scansObserved)
	return m
}

// observeScan records the terminal counts of one completed scan's result.
func (m *ScanMetrics) observeScan(res *Result) {
	if m == nil || res == nil {
		return
	}
	counts := res.DeriveCounts()
	for sig, n := range counts.MainRecordsByKind {
		m.mainRecords.WithLabelValues(sig).Add(float64(n))
	}
	for kind, n := range counts.ReconstructedByKind {
		m.reconstructed.WithLabelValues(kind).Add(float64(n))
	}
	m.diagnostics.Add(float64(len(res.Diagnostics)))
	m.scansObserved.Inc()
}

// observeHashTableEntries records entries recovered by the C6 walker.
func (m *ScanMetrics) observeHashTableEntries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.hashTableHits.Add(float64(n))
}
