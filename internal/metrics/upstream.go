// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_upstream_requests_total",
		Help: "Total number of upstream oracle requests, by outcome.",
	}, []string{"outcome"})

	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rategate_upstream_request_duration_seconds",
		Help:    "Upstream oracle request duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// RecordUpstreamRequest records one upstream call with its outcome and duration.
func RecordUpstreamRequest(outcome string, d time.Duration) {
	upstreamRequests.WithLabelValues(outcome).Inc()
	upstreamDuration.Observe(d.Seconds())
}
