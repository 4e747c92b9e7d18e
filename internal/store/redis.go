// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is the Redis-backed implementation of Store.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// compareAndDelete deletes the key only while it still holds the expected
// value. GET+DEL as a script keeps the check atomic so a late holder cannot
// free a successor's record.
var compareAndDelete = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// compareAndExpire refreshes the TTL only while the key still holds the
// expected value.
var compareAndExpire = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis store")

	return &RedisStore{
		client: client,
		logger: logger,
	}, nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Get retrieves a value.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes a value with TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetNX writes a value with TTL only if the key is absent.
func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// CompareAndDelete removes the key only if it still holds expected.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("redis cmpdel %s: %w", key, err)
	}
	return n == 1, nil
}

// CompareAndExpire refreshes the TTL only if the key still holds expected.
func (s *RedisStore) CompareAndExpire(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error) {
	n, err := compareAndExpire.Run(ctx, s.client, []string{key}, expected, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis cmpexpire %s: %w", key, err)
	}
	return n == 1, nil
}

// Del removes keys unconditionally.
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Expire sets a TTL on an existing key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

// RPush appends to the right end of a list.
func (s *RedisStore) RPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

// LPush prepends to the left end of a list.
func (s *RedisStore) LPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", key, err)
	}
	return nil
}

// LPop removes the leftmost element.
func (s *RedisStore) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.LPop(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis lpop %s: %w", key, err)
	}
	return val, true, nil
}

// RPop removes the rightmost element.
func (s *RedisStore) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.RPop(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis rpop %s: %w", key, err)
	}
	return val, true, nil
}

const (
	// blpopSlice bounds each individual blocking pop so context cancellation
	// is observed between slices; the protocol itself cannot interrupt a
	// blocked read, and BLPOP timeouts below one second are not supported.
	blpopSlice = time.Second
	// blpopPoll covers the sub-second remainder of a wait with plain LPOP
	// polling. Safe because every blocked list has exactly one consumer.
	blpopPoll = 25 * time.Millisecond
)

// BLPop blocks until an element arrives or the timeout elapses. The wait is
// issued in one-second blocking slices so a cancelled context aborts within
// one slice; any sub-second remainder is polled.
func (s *RedisStore) BLPop(ctx context.Context, key string, timeout time.Duration) ([]byte, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, false, nil
		}
		if wait < blpopSlice {
			return s.pollPop(ctx, key, deadline)
		}

		res, err := s.client.BLPop(ctx, blpopSlice, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			return nil, false, fmt.Errorf("redis blpop %s: %w", key, err)
		}
		// BLPOP returns [key, value].
		if len(res) != 2 {
			return nil, false, fmt.Errorf("redis blpop %s: unexpected reply length %d", key, len(res))
		}
		return []byte(res[1]), true, nil
	}
}

// pollPop drains the remainder of a blocking wait with non-blocking pops.
func (s *RedisStore) pollPop(ctx context.Context, key string, deadline time.Time) ([]byte, bool, error) {
	ticker := time.NewTicker(blpopPoll)
	defer ticker.Stop()

	for {
		val, ok, err := s.LPop(ctx, key)
		if err != nil || ok {
			return val, ok, err
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Exists reports whether the key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping checks if Redis is available.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
