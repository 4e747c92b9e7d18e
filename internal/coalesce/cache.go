// SPDX-License-Identifier: MIT

// Package coalesce implements the request-coalescing cache: cache lookup,
// leader election through the distributed lease, the leader fetch+publish
// path, the follower wait-with-retry path, and the stale fallback when the
// circuit breaker is open.
package coalesce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stayware/rategate/internal/breaker"
	"github.com/stayware/rategate/internal/lease"
	"github.com/stayware/rategate/internal/metrics"
	"github.com/stayware/rategate/internal/rendezvous"
	"github.com/stayware/rategate/internal/store"
)

var (
	// ErrUnavailable means the breaker is open and no stale copy exists.
	ErrUnavailable = errors.New("pricing temporarily unavailable")
	// ErrWaitTimeout means coalescing could not deliver a result within the
	// follower budget, including all retries.
	ErrWaitTimeout = errors.New("coalesced fetch timed out")
)

// Fetcher produces the value for one key. It is invoked at most once per
// in-flight window across all concurrent callers and all processes.
type Fetcher func(ctx context.Context) ([]byte, error)

// Config carries the cache timings. Zero values fall back to the documented
// defaults.
type Config struct {
	FreshTTL        time.Duration // validity window of a cache entry (5m)
	StaleTTL        time.Duration // retention window for fallback reads (15m)
	FetchBudget     time.Duration // hard budget for one fetcher call (30s)
	FollowerTimeout time.Duration // single rendezvous wait (15s)
	FollowerRetries int           // extra follower rounds after a timeout (2)
	RetryBackoff    time.Duration // initial follower retry backoff (200ms)
}

func (c Config) withDefaults() Config {
	if c.FreshTTL <= 0 {
		c.FreshTTL = 5 * time.Minute
	}
	if c.StaleTTL <= 0 {
		c.StaleTTL = 15 * time.Minute
	}
	if c.FetchBudget <= 0 {
		c.FetchBudget = 30 * time.Second
	}
	if c.FollowerTimeout <= 0 {
		c.FollowerTimeout = 15 * time.Second
	}
	if c.FollowerRetries < 0 {
		c.FollowerRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	return c
}

// Cache coordinates concurrent fetches for the same key so the upstream
// receives exactly one in-flight call per key.
type Cache struct {
	store   store.Store
	leases  *lease.Manager
	boxes   *rendezvous.Mailboxes
	breaker *breaker.Breaker
	cfg     Config
	logger  zerolog.Logger
}

// New assembles a coalescing cache from its coordination primitives.
func New(st store.Store, leases *lease.Manager, boxes *rendezvous.Mailboxes, brk *breaker.Breaker, cfg Config, logger zerolog.Logger) *Cache {
	return &Cache{
		store:   st,
		leases:  leases,
		boxes:   boxes,
		breaker: brk,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Key derivations. The fingerprint key already carries the namespace
// ("pricing:<digest>"); the coordination keys are layered around it so
// leader and followers agree without further state.
func lockKey(key string) string    { return "lock:" + key }
func waitersKey(key string) string { return "waiters:" + key }

func staleKey(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1] + "stale:" + key[i+1:]
	}
	return "stale:" + key
}

// Fetch returns the cached value for key, electing a single leader to run
// the fetcher on a miss while concurrent callers block until the leader
// publishes.
func (c *Cache) Fetch(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	for round := 0; ; round++ {
		// Fast path.
		if v, ok := c.readFresh(ctx, key, "fast"); ok {
			return v, nil
		}
		metrics.RecordCacheMiss()

		// Breaker gate: while open, never touch the lease or the fetcher.
		if c.breaker.Open() {
			return c.staleOrUnavailable(ctx, key, "breaker_open")
		}

		// Leader election.
		var payload []byte
		err := c.leases.WithLease(ctx, lockKey(key), func(ctx context.Context) error {
			var err error
			payload, err = c.lead(ctx, key, fetch)
			return err
		})

		switch {
		case err == nil:
			return payload, nil

		case errors.Is(err, lease.ErrUnavailable):
			// Follower path.
			metrics.RecordFollower()
			v, done, err := c.follow(ctx, key)
			if err != nil {
				return nil, err
			}
			if done {
				return v, nil
			}
			if round >= c.cfg.FollowerRetries {
				return nil, ErrWaitTimeout
			}
			metrics.RecordFollowerRetry()
			if err := c.backoff(ctx, round); err != nil {
				return nil, err
			}
			continue

		case errors.Is(err, breaker.ErrOpen):
			// The breaker tripped between the gate and the call.
			return c.staleOrUnavailable(ctx, key, "breaker_open")

		default:
			return nil, err
		}
	}
}

// lead runs the leader path: double-check the cache under the lease, fetch
// under the breaker with the fetch budget, write fresh+stale, publish.
func (c *Cache) lead(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	metrics.RecordLeader()

	// Double-check under the lease: a previous leader may have published
	// between our miss and the acquisition.
	if v, ok := c.readFresh(ctx, key, "leader_recheck"); ok {
		c.boxes.Publish(ctx, waitersKey(key), v)
		return v, nil
	}

	var payload []byte
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchBudget)
	defer cancel()

	err := c.breaker.Execute(func() error {
		v, err := fetch(fetchCtx)
		if err != nil {
			return err
		}
		payload = v
		return nil
	})
	if err != nil {
		// No cache write on failure. The waiters run out their blocking
		// wait and fall back on their own; dropping the registry keeps
		// their mailbox ids from going stale in the store.
		c.boxes.Discard(ctx, waitersKey(key))
		return nil, err
	}

	if err := c.store.Set(ctx, key, payload, c.cfg.FreshTTL); err != nil {
		c.boxes.Discard(ctx, waitersKey(key))
		return nil, fmt.Errorf("cache write for %s: %w", key, err)
	}
	metrics.RecordCacheWrite()

	// The stale copy is best-effort; losing it only narrows the fallback.
	if err := c.store.Set(ctx, staleKey(key), payload, c.cfg.StaleTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("stale copy write failed")
	}

	// Publish strictly after the fresh write.
	c.boxes.Publish(ctx, waitersKey(key), payload)
	return payload, nil
}

// follow runs one follower round: register a rendezvous, block, and on
// timeout try the fresh entry (the leader may have just written it) and the
// stale copy before reporting "retry".
func (c *Cache) follow(ctx context.Context, key string) (value []byte, done bool, err error) {
	h, err := c.boxes.Create(ctx, waitersKey(key))
	if err != nil {
		return nil, false, err
	}

	v, err := h.Wait(ctx)
	if err == nil {
		if !json.Valid(v) {
			metrics.RecordCacheCorrupt()
			c.logger.Warn().Str("key", key).Msg("discarding corrupt rendezvous payload")
			return nil, false, nil
		}
		return v, true, nil
	}
	if !errors.Is(err, rendezvous.ErrWaitTimeout) {
		return nil, false, err
	}

	if v, ok := c.readFresh(ctx, key, "follower_fallback"); ok {
		return v, true, nil
	}
	if v, ok := c.readStale(ctx, key, "follower_timeout"); ok {
		return v, true, nil
	}
	return nil, false, nil
}

// readFresh reads and validates the fresh entry. Corrupt data is treated as
// absent and logged.
func (c *Cache) readFresh(ctx context.Context, key, phase string) ([]byte, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if !json.Valid(v) {
		metrics.RecordCacheCorrupt()
		c.logger.Warn().Str("key", key).Msg("discarding corrupt cache entry")
		return nil, false
	}
	metrics.RecordCacheHit(phase)
	return v, true
}

func (c *Cache) readStale(ctx context.Context, key, reason string) ([]byte, bool) {
	v, ok, err := c.store.Get(ctx, staleKey(key))
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("stale read failed")
		return nil, false
	}
	if !ok || !json.Valid(v) {
		return nil, false
	}
	metrics.RecordStaleHit(reason)
	return v, true
}

func (c *Cache) staleOrUnavailable(ctx context.Context, key, reason string) ([]byte, error) {
	if v, ok := c.readStale(ctx, key, reason); ok {
		return v, nil
	}
	return nil, ErrUnavailable
}

// backoff sleeps for the round's exponential backoff with ±20% jitter,
// aborting early on context cancellation.
func (c *Cache) backoff(ctx context.Context, round int) error {
	d := c.cfg.RetryBackoff << round
	jittered := time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))

	timer := time.NewTimer(jittered)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
