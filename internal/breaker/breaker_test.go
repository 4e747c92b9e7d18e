// SPDX-License-Identifier: MIT

package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

var errUpstream = errors.New("upstream 500")

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	b := New("test", 5, time.Minute, WithClock(clock))

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, b.Execute(fail), errUpstream)
		assert.Equal(t, StateClosed, b.State(), "still closed after %d failures", i+1)
	}

	// 5th failure trips it.
	assert.ErrorIs(t, b.Execute(fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	// 6th call is rejected without invoking the function.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	b := New("test", 3, time.Minute, WithClock(clock))

	assert.Error(t, b.Execute(fail))
	assert.Error(t, b.Execute(fail))
	assert.NoError(t, b.Execute(succeed))

	// Counter was reset; two more failures do not trip a threshold of 3.
	assert.Error(t, b.Execute(fail))
	assert.Error(t, b.Execute(fail))
	assert.Equal(t, StateClosed, b.State())

	assert.Error(t, b.Execute(fail))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	b := New("test", 1, 60*time.Second, WithClock(clock))

	assert.Error(t, b.Execute(fail))
	assert.Equal(t, StateOpen, b.State())
	assert.True(t, b.Open())

	// Before the cooldown: still rejecting.
	clock.advance(30 * time.Second)
	assert.ErrorIs(t, b.Execute(succeed), ErrOpen)

	// After the cooldown: a probe is admitted and success closes.
	clock.advance(31 * time.Second)
	assert.False(t, b.Open())
	assert.NoError(t, b.Execute(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	b := New("test", 1, 60*time.Second, WithClock(clock))

	assert.Error(t, b.Execute(fail))
	clock.advance(61 * time.Second)

	// Failed probe restamps openedAt.
	assert.ErrorIs(t, b.Execute(fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	// A fresh cooldown applies from the failed probe.
	clock.advance(30 * time.Second)
	assert.ErrorIs(t, b.Execute(succeed), ErrOpen)

	clock.advance(31 * time.Second)
	assert.NoError(t, b.Execute(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ConcurrentCallers(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	b := New("test", 50, time.Minute, WithClock(clock))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(fails bool) {
			defer wg.Done()
			if fails {
				_ = b.Execute(fail)
			} else {
				_ = b.Execute(succeed)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	// No race, and the state is one of the valid phases.
	s := b.State()
	assert.Contains(t, []State{StateClosed, StateOpen}, s)
}

func TestBreaker_Defaults(t *testing.T) {
	b := New("test", 0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 60*time.Second, b.cooldown)
}
