// Package metrics provides Prometheus collectors for the offline subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors published by the daemon. A nil *Metrics is
// valid and turns every record method into a no-op, so library code can be
// used without a registry.
type Metrics struct {
	PendingItems prometheus.Gauge
	SyncPasses   prometheus.Counter
	ItemsSynced  prometheus.Counter
	ItemsFailed  prometheus.Counter
	ItemsDropped prometheus.Counter
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
}

// New creates and registers the offline subsystem collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PendingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offline_pending_items",
			Help: "Number of mutation intents waiting in the pending-sync queue.",
		}),
		SyncPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offline_sync_passes_total",
			Help: "Completed drain passes of the sync engine.",
		}),
		ItemsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offline_items_synced_total",
			Help: "Queue items uploaded successfully and removed.",
		}),
		ItemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offline_items_failed_total",
			Help: "Upload attempts that failed and incremented a retry counter.",
		}),
		ItemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offline_items_dropped_total",
			Help: "Queue items discarded after exhausting their retries.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Responses served from a bounded cache.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offline_cache_misses_total",
			Help: "Lookups that missed a bounded cache.",
		}, []string{"cache"}),
	}

	reg.MustRegister(
		m.PendingItems, m.SyncPasses, m.ItemsSynced,
		m.ItemsFailed, m.ItemsDropped, m.CacheHits, m.CacheMisses,
	)
	return m
}

// SetPending records the current pending-queue depth.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingItems.Set(float64(n))
}

// RecordPass counts one completed drain pass.
func (m *Metrics) RecordPass() {
	if m == nil {
		return
	}
	m.SyncPasses.Inc()
}

// RecordSynced counts one successfully uploaded item.
func (m *Metrics) RecordSynced() {
	if m == nil {
		return
	}
	m.ItemsSynced.Inc()
}

// RecordFailed counts one failed upload attempt.
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.ItemsFailed.Inc()
}

// RecordDropped counts one retry-exhausted item discard.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.ItemsDropped.Inc()
}

// RecordCacheHit counts a hit on the named bounded cache.
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a miss on the named bounded cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}
