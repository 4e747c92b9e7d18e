// SPDX-License-Identifier: MIT

// Package config assembles runtime configuration from environment variables.
// Precedence is ENV > defaults; the defaults match the documented pricing
// cache timings.
package config

import "time"

// Config is an immutable snapshot of the daemon configuration.
type Config struct {
	// HTTP front end
	ListenAddr string
	LogLevel   string

	// Shared Redis store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Upstream pricing oracle
	UpstreamURL   string
	UpstreamToken string
	UpstreamRate  float64 // requests per second the oracle tolerates
	UpstreamBurst int

	// Cache timings
	FreshTTL time.Duration
	StaleTTL time.Duration

	// Coordination
	LeaseTTL        time.Duration
	ExtendInterval  time.Duration
	FetchBudget     time.Duration
	FollowerTimeout time.Duration
	FollowerRetries int
	RetryBackoff    time.Duration

	// Circuit breaker
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// FromEnv builds a Config from RATEGATE_* environment variables.
func FromEnv() Config {
	return Config{
		ListenAddr: ParseString("RATEGATE_LISTEN", ":8080"),
		LogLevel:   ParseString("RATEGATE_LOG_LEVEL", "info"),

		RedisAddr:     ParseString("RATEGATE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: ParseString("RATEGATE_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("RATEGATE_REDIS_DB", 0),

		UpstreamURL:   ParseString("RATEGATE_UPSTREAM_URL", "http://localhost:9000/pricing"),
		UpstreamToken: ParseString("RATEGATE_UPSTREAM_TOKEN", ""),
		UpstreamRate:  ParseFloat("RATEGATE_UPSTREAM_RATE", 10),
		UpstreamBurst: ParseInt("RATEGATE_UPSTREAM_BURST", 20),

		FreshTTL: ParseDuration("RATEGATE_CACHE_FRESH_TTL", 5*time.Minute),
		StaleTTL: ParseDuration("RATEGATE_CACHE_STALE_TTL", 15*time.Minute),

		LeaseTTL:        ParseDuration("RATEGATE_LEASE_TTL", 60*time.Second),
		ExtendInterval:  ParseDuration("RATEGATE_LEASE_EXTEND_INTERVAL", 2*time.Second),
		FetchBudget:     ParseDuration("RATEGATE_FETCH_BUDGET", 30*time.Second),
		FollowerTimeout: ParseDuration("RATEGATE_FOLLOWER_TIMEOUT", 15*time.Second),
		FollowerRetries: ParseInt("RATEGATE_FOLLOWER_RETRIES", 2),
		RetryBackoff:    ParseDuration("RATEGATE_RETRY_BACKOFF", 200*time.Millisecond),

		BreakerThreshold: ParseInt("RATEGATE_BREAKER_THRESHOLD", 5),
		BreakerCooldown:  ParseDuration("RATEGATE_BREAKER_COOLDOWN", 60*time.Second),
	}
}
