// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CoalesceLeaderTotal counts fetches that won leader election.
	CoalesceLeaderTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_coalesce_leader_total",
		Help: "Total number of fetches that acted as leader.",
	})

	// CoalesceFollowerTotal counts fetches that waited as followers.
	CoalesceFollowerTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_coalesce_follower_total",
		Help: "Total number of fetches that blocked as followers.",
	})

	// CoalesceFollowerTimeoutTotal counts follower waits that timed out.
	CoalesceFollowerTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_coalesce_follower_timeout_total",
		Help: "Total number of follower waits that hit the rendezvous timeout.",
	})

	// CoalescePublishTotal counts rendezvous deliveries by the leader.
	CoalescePublishTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_coalesce_publish_total",
		Help: "Total number of payloads delivered to waiting followers.",
	})

	// CoalesceRetriesTotal counts follower retry rounds.
	CoalesceRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rategate_coalesce_retries_total",
		Help: "Total number of follower retry rounds after a wait timeout.",
	})
)

// RecordLeader increments the leader counter.
func RecordLeader() { CoalesceLeaderTotal.Inc() }

// RecordFollower increments the follower counter.
func RecordFollower() { CoalesceFollowerTotal.Inc() }

// RecordFollowerTimeout increments the follower timeout counter.
func RecordFollowerTimeout() { CoalesceFollowerTimeoutTotal.Inc() }

// RecordPublish adds the number of followers notified in one publish phase.
func RecordPublish(n int) { CoalescePublishTotal.Add(float64(n)) }

// RecordFollowerRetry increments the follower retry counter.
func RecordFollowerRetry() { CoalesceRetriesTotal.Inc() }
