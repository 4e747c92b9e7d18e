// SPDX-License-Identifier: MIT

// Package rendezvous implements the follower-side drop boxes of the
// coalescing cache: each blocked follower owns a single-slot mailbox in the
// shared store, registered on an ordered waiters list that the leader
// drains when it publishes a result.
package rendezvous

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

// ErrWaitTimeout is returned when no payload arrived within the follower
// timeout.
var ErrWaitTimeout = errors.New("rendezvous wait timed out")

const mailboxPrefix = "rendezvous:"

// Mailboxes creates and publishes to rendezvous drop boxes.
type Mailboxes struct {
	store   store.Store
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a Mailboxes coordinator with the given follower wait timeout.
func New(st store.Store, timeout time.Duration, logger zerolog.Logger) *Mailboxes {
	return &Mailboxes{
		store:   st,
		timeout: timeout,
		logger:  logger,
	}
}

// Handle owns one rendezvous mailbox registered on a waiters list.
type Handle struct {
	key     string
	store   store.Store
	timeout time.Duration
}

// Create allocates a mailbox and appends its key to the waiters list in
// arrival order. The returned handle owns the mailbox. The waiters list gets
// a TTL so a leader that dies without publishing or discarding does not leak
// the registry; every registration refreshes it.
func (m *Mailboxes) Create(ctx context.Context, waitersKey string) (*Handle, error) {
	key := mailboxPrefix + uuid.NewString()
	if err := m.store.RPush(ctx, waitersKey, []byte(key)); err != nil {
		return nil, fmt.Errorf("register waiter on %s: %w", waitersKey, err)
	}
	if err := m.store.Expire(ctx, waitersKey, 2*m.timeout); err != nil {
		m.logger.Warn().Err(err).Str("key", waitersKey).Msg("waiters expire failed")
	}
	return &Handle{
		key:     key,
		store:   m.store,
		timeout: m.timeout,
	}, nil
}

// Wait blocks until the leader drops a payload into the mailbox, the timeout
// elapses (ErrWaitTimeout), or ctx is cancelled. The mailbox is deleted on
// every exit path so abandoned boxes do not accumulate.
func (h *Handle) Wait(ctx context.Context) ([]byte, error) {
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.store.Del(cleanupCtx, h.key)
	}()

	payload, ok, err := h.store.BLPop(ctx, h.key, h.timeout)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.RecordFollowerTimeout()
		return nil, ErrWaitTimeout
	}
	return payload, nil
}

// Publish drains the waiters list in arrival order and drops the payload
// into every registered mailbox, exactly once per waiter. The waiters list
// is deleted at the end even when individual deliveries fail; mailboxes of
// timed-out followers expire on their own.
func (m *Mailboxes) Publish(ctx context.Context, waitersKey string, payload []byte) int {
	defer func() {
		if err := m.store.Del(ctx, waitersKey); err != nil {
			m.logger.Warn().Err(err).Str("key", waitersKey).Msg("waiters cleanup failed")
		}
	}()

	notified := 0
	for {
		mailbox, ok, err := m.store.LPop(ctx, waitersKey)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", waitersKey).Msg("waiters drain failed")
			break
		}
		if !ok {
			break
		}
		if err := m.store.RPush(ctx, string(mailbox), payload); err != nil {
			m.logger.Warn().Err(err).Str("mailbox", string(mailbox)).Msg("rendezvous delivery failed")
			continue
		}
		// The follower deletes the box after consumption; the TTL covers
		// boxes whose follower already gave up.
		if err := m.store.Expire(ctx, string(mailbox), m.timeout); err != nil {
			m.logger.Warn().Err(err).Str("mailbox", string(mailbox)).Msg("rendezvous expire failed")
		}
		notified++
	}

	metrics.RecordPublish(notified)
	return notified
}

// Discard drops the waiters list without delivering anything. Used by the
// leader on fetch failure: followers run out their wait and fall back on
// their own.
func (m *Mailboxes) Discard(ctx context.Context, waitersKey string) {
	if err := m.store.Del(ctx, waitersKey); err != nil {
		m.logger.Warn().Err(err).Str("key", waitersKey).Msg("waiters discard failed")
	}
}
