// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rategate_breaker_state",
		Help: "Circuit breaker state by component (active state=1, others=0).",
	}, []string{"component", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_breaker_trips_total",
		Help: "Total number of circuit breaker trips (transitions to open).",
	}, []string{"component", "reason"})

	breakerRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rategate_breaker_rejects_total",
		Help: "Total number of calls rejected while the breaker was open.",
	}, []string{"component"})
)

var breakerStates = []string{"closed", "half-open", "open"}

// SetBreakerState records the active circuit breaker state for a component.
func SetBreakerState(component, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		breakerState.WithLabelValues(component, s).Set(value)
	}
}

// RecordBreakerTrip increments the trip counter when the breaker opens.
func RecordBreakerTrip(component, reason string) {
	breakerTrips.WithLabelValues(component, reason).Inc()
}

// RecordBreakerReject increments the rejected-call counter.
func RecordBreakerReject(component string) {
	breakerRejects.WithLabelValues(component).Inc()
}
