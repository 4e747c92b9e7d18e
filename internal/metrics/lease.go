// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LeaseAcquiredTotal counts successful lease acquisitions.
	LeaseAcquiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_lease_acquired_total",
		Help: "Total number of successful lease acquisitions.",
	})

	// LeaseContendedTotal counts acquisition attempts that lost the race.
	LeaseContendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_lease_contended_total",
		Help: "Total number of lease acquisition attempts that found the lease held.",
	})

	// LeaseLostTotal counts extensions or releases that found the lease
	// no longer owned by this holder.
	LeaseLostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_lease_lost_total",
		Help: "Total number of lease operations that found the lease owned elsewhere, by operation.",
	}, []string{"op"})
)

// RecordLeaseAcquired increments the acquisition counter.
func RecordLeaseAcquired() { LeaseAcquiredTotal.Inc() }

// RecordLeaseContended increments the contention counter.
func RecordLeaseContended() { LeaseContendedTotal.Inc() }

// RecordLeaseLost increments the lost-ownership counter for an operation.
func RecordLeaseLost(op string) { LeaseLostTotal.WithLabelValues(op).Inc() }
