// SPDX-License-Identifier: MIT

// Package store defines the shared key/value surface that all cross-process
// coordination state lives behind: cache entries, leases, waiter lists and
// rendezvous mailboxes. Absent keys are reported via the ok return, never as
// an error.
package store

import (
	"context"
	"time"
)

// Store is the abstract command surface the coordination layers depend on.
// Every conditional operation (SetNX, CompareAndDelete, CompareAndExpire)
// must be atomic in the backing store.
type Store interface {
	// Get returns the value at key, or ok=false when absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value with the given TTL, unconditionally.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes value with TTL only if key is absent; reports whether it set.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only if its current value equals expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	// CompareAndExpire refreshes the TTL only if the current value equals expected.
	CompareAndExpire(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error)
	// Del removes keys unconditionally.
	Del(ctx context.Context, keys ...string) error
	// Expire sets a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// RPush appends value to the right end of the list at key.
	RPush(ctx context.Context, key string, value []byte) error
	// LPush prepends value to the left end of the list at key.
	LPush(ctx context.Context, key string, value []byte) error
	// LPop removes and returns the leftmost element, or ok=false when empty.
	LPop(ctx context.Context, key string) ([]byte, bool, error)
	// RPop removes and returns the rightmost element, or ok=false when empty.
	RPop(ctx context.Context, key string) ([]byte, bool, error)
	// BLPop blocks until an element arrives at key or timeout elapses;
	// ok=false on timeout. Context cancellation aborts the wait early.
	BLPop(ctx context.Context, key string, timeout time.Duration) ([]byte, bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection pool.
	Close() error
}
