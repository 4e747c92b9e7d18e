// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the rategate subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal counts fresh cache hits by lookup phase (fast path vs
	// leader double-check vs follower fallback).
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_cache_hits_total",
		Help: "Total number of fresh cache hits, by lookup phase.",
	}, []string{"phase"})

	// CacheMissesTotal counts fresh cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_cache_misses_total",
		Help: "Total number of fresh cache misses.",
	})

	// CacheStaleHitsTotal counts reads served from the stale copy.
	CacheStaleHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_cache_stale_hits_total",
		Help: "Total number of reads served from the stale copy, by reason.",
	}, []string{"reason"})

	// CacheWritesTotal counts fresh cache writes by the leader.
	CacheWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_cache_writes_total",
		Help: "Total number of fresh cache entries written.",
	})

	// CacheCorruptTotal counts cache entries discarded as unparseable.
	CacheCorruptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_cache_corrupt_total",
		Help: "Total number of cache entries discarded because they failed to parse.",
	})
)

// RecordCacheHit increments the fresh-hit counter for a lookup phase.
func RecordCacheHit(phase string) {
	CacheHitsTotal.WithLabelValues(phase).Inc()
}

// RecordCacheMiss increments the fresh-miss counter.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordStaleHit increments the stale-hit counter with the fallback reason.
func RecordStaleHit(reason string) {
	CacheStaleHitsTotal.WithLabelValues(reason).Inc()
}

// RecordCacheWrite increments the write counter.
func RecordCacheWrite() {
	CacheWritesTotal.Inc()
}

// RecordCacheCorrupt increments the corrupt-entry counter.
func RecordCacheCorrupt() {
	CacheCorruptTotal.Inc()
}
