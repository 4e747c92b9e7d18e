// SPDX-License-Identifier: MIT

// Package lease implements a named, owned, auto-extending mutual-exclusion
// record in the shared store. At most one holder owns a name at a time;
// a crashed holder's record is reclaimed by store expiry.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stayware/rategate/internal/metrics"
	"github.com/stayware/rategate/internal/store"
)

// ErrUnavailable is returned by WithLease when the lease is held elsewhere.
// Acquisition is a single attempt; retrying is the caller's decision.
var ErrUnavailable = errors.New("lease unavailable")

// Manager acquires and maintains leases in the shared store.
type Manager struct {
	store          store.Store
	ttl            time.Duration
	extendInterval time.Duration
	logger         zerolog.Logger
}

// NewManager creates a lease manager. extendInterval defaults to ttl/5
// when zero.
func NewManager(st store.Store, ttl, extendInterval time.Duration, logger zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if extendInterval <= 0 {
		extendInterval = ttl / 5
	}
	return &Manager{
		store:          st,
		ttl:            ttl,
		extendInterval: extendInterval,
		logger:         logger,
	}
}

// TryAcquire attempts to become the holder of name. Contention is reported
// as (false, nil), not an error.
func (m *Manager) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ok, err := m.store.SetNX(ctx, name, []byte(owner), ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if ok {
		metrics.RecordLeaseAcquired()
	} else {
		metrics.RecordLeaseContended()
	}
	return ok, nil
}

// Extend refreshes the expiry only while owner still holds the lease.
func (m *Manager) Extend(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ok, err := m.store.CompareAndExpire(ctx, name, []byte(owner), ttl)
	if err != nil {
		return false, fmt.Errorf("extend lease %s: %w", name, err)
	}
	if !ok {
		metrics.RecordLeaseLost("extend")
	}
	return ok, nil
}

// Release deletes the lease only while owner still holds it. A blind delete
// could free a successor's lease after our own record expired, so the
// compare is mandatory.
func (m *Manager) Release(ctx context.Context, name, owner string) (bool, error) {
	ok, err := m.store.CompareAndDelete(ctx, name, []byte(owner))
	if err != nil {
		return false, fmt.Errorf("release lease %s: %w", name, err)
	}
	if !ok {
		metrics.RecordLeaseLost("release")
	}
	return ok, nil
}

// WithLease runs body while holding the named lease. A background extender
// refreshes the expiry every extend interval and is joined before the lease
// is released, on every exit path. Returns ErrUnavailable without retrying
// when the lease is held elsewhere.
func (m *Manager) WithLease(ctx context.Context, name string, body func(ctx context.Context) error) error {
	owner := uuid.NewString()

	ok, err := m.TryAcquire(ctx, name, owner, m.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnavailable
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go m.extendLoop(name, owner, stop, done)

	defer func() {
		close(stop)
		<-done

		// The request context may already be cancelled; the release still
		// has to happen.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		released, err := m.Release(releaseCtx, name, owner)
		if err != nil {
			m.logger.Warn().Err(err).Str("lease", name).Msg("lease release failed")
			return
		}
		if !released {
			// The record expired or was reclaimed; store-enforced, nothing to undo.
			m.logger.Info().Str("lease", name).Msg("lease already gone at release")
		}
	}()

	return body(ctx)
}

// extendLoop refreshes the lease until stopped. Store errors are logged and
// retried at the next tick; they never abort the critical section.
func (m *Manager) extendLoop(name, owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.extendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			extended, err := m.Extend(ctx, name, owner, m.ttl)
			cancel()
			if err != nil {
				m.logger.Warn().Err(err).Str("lease", name).Msg("lease extension failed")
				continue
			}
			if !extended {
				m.logger.Warn().Str("lease", name).Msg("lease no longer owned, stopping extender")
				return
			}
		case <-stop:
			return
		}
	}
}
