// SPDX-License-Identifier: MIT

// Package breaker implements a three-state circuit breaker guarding calls
// to the upstream pricing oracle. State is process-local; cross-process
// coordination happens through the cache, not the breaker.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/stayware/rategate/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned without invoking the wrapped call while the breaker
// is open.
var ErrOpen = errors.New("circuit breaker is open")

// clock abstracts time operations for testability.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Breaker is a consecutive-failure circuit breaker. Counters are shared
// across concurrent callers of the same process and updated under one mutex.
type Breaker struct {
	mu        sync.Mutex
	name      string // component name for metrics
	state     State
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	clock     clock
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock substitutes the time source; used by tests.
func WithClock(c clock) Option {
	return func(b *Breaker) { b.clock = c }
}

// New creates a circuit breaker that opens after threshold consecutive
// failures and probes again after cooldown.
func New(name string, threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}

	b := &Breaker{
		name:      name,
		state:     StateClosed,
		threshold: threshold,
		cooldown:  cooldown,
		clock:     realClock{},
	}

	for _, opt := range opts {
		opt(b)
	}

	metrics.SetBreakerState(b.name, string(b.state))
	return b
}

// Execute runs fn respecting the breaker state. Every returned error counts
// as a failure, every nil return as a success.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allowRequest() {
		metrics.RecordBreakerReject(b.name)
		return ErrOpen
	}

	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// allowRequest reports whether a call may proceed, transitioning
// open -> half-open once the cooldown has elapsed.
func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock.Now().Sub(b.openedAt) >= b.cooldown {
			b.transitionTo(StateHalfOpen)
			return true
		}
		return false
	default: // StateHalfOpen: the lease already serializes probes per key.
		return true
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++

	if b.state == StateHalfOpen {
		metrics.RecordBreakerTrip(b.name, "half_open_failure")
		b.transitionTo(StateOpen)
		return
	}

	if b.state == StateClosed && b.failures >= b.threshold {
		metrics.RecordBreakerTrip(b.name, "threshold_exceeded")
		b.transitionTo(StateOpen)
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
}

// transitionTo handles state transitions and updates metrics.
// Caller must hold the lock.
func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}
	b.state = newState
	if newState == StateOpen {
		b.openedAt = b.clock.Now()
	}
	metrics.SetBreakerState(b.name, string(newState))
}

// State returns the current state. An open breaker past its cooldown still
// reports open; the transition happens on the next admission check.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Open reports whether calls would currently be rejected. Unlike State it
// accounts for an elapsed cooldown, so callers gating on it see half-open
// as admitting.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return false
	}
	return b.clock.Now().Sub(b.openedAt) < b.cooldown
}
