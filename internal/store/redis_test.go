// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStoreFromClient(client, zerolog.Nop())
}

func TestRedisStore_SetGet(t *testing.T) {
	_, st := setupMiniRedis(t)
	ctx := context.Background()

	if err := st.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, ok, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to be present")
	}
	if string(val) != "v" {
		t.Errorf("expected 'v', got %q", val)
	}
}

func TestRedisStore_GetAbsent(t *testing.T) {
	_, st := setupMiniRedis(t)

	_, ok, err := st.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected absent key")
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, st := setupMiniRedis(t)
	ctx := context.Background()

	if err := st.Set(ctx, "k", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	mr.FastForward(200 * time.Millisecond)

	_, ok, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected key to be expired")
	}
}

func TestRedisStore_SetNX(t *testing.T) {
	_, st := setupMiniRedis(t)
	ctx := context.Background()

	ok, err := st.SetNX(ctx, "lock", []byte("owner-a"), time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if !ok {
		t.Fatal("expected first setnx to win")
	}

	ok, err = st.SetNX(ctx, "lock", []byte("owner-b"), time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if ok {
		t.Error("expected second setnx to lose")
	}

	val, _, _ := st.Get(ctx, "lock")
	if string(val) != "owner-a" {
		t.Errorf("expected owner-a to hold the key, got %q", val)
	}
}

func TestRedisStore_CompareAndDelete(t *testing.T) {
	_, st := setupMiniRedis(t)
	ctx := context.Background()

	if err := st.Set(ctx, "lock", []byte("owner-a"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Wrong owner must not delete.
	ok, err := st.CompareAndDelete(ctx, "lock", []byte("owner-b"))
	if err != nil {
		t.Fatalf("cmpdel: %v", err)
	}
	if ok {
		t.Error("expected mismatch to be a no-op")
	}
	if present, _ := st.Exists(ctx, "lock"); !present {
		t.Fatal("key must survive a mismatched delete")
	}

	// Matching owner deletes.
	ok, err = st.CompareAndDelete(ctx, "lock", []byte("owner-a"))
	if err != nil {
		t.Fatalf("cmpdel: %v", err)
	}
	if !ok {
		t.Error("expected matching delete to succeed")
	}
	if present, _ := st.Exists(ctx, "lock"); present {
		t.Error("key must be gone after matching delete")
	}
}

func TestRedisStore_CompareAndExpire(t *testing.T) {
	mr, st := setupMiniRedis(t)
	ctx := context.Background()

	if err := st.Set(ctx, "lock", []byte("owner-a"), 100*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	ok, err := st.CompareAndExpire(ctx, "lock", []byte("owner-a"), time.Minute)
	if err != nil {
		t.Fatalf("cmpexpire: %v", err)
	}
	if !ok {
		t.Fatal("expected matching expire to succeed")
	}

	// Past the original TTL the key must still be there.
	mr.FastForward(500 * time.Millisecond)
	if present, _ := st.Exists(ctx, "lock"); !present {
		t.Error("key must survive past the original TTL after refresh")
	}

	// Mismatched owner must not refresh.
	ok, err = st.CompareAndExpire(ctx, "lock", []byte("owner-b"), time.Hour)
	if err != nil {
		t.Fatalf("cmpexpire: %v", err)
	}
	if ok {
		t.Error("expected mismatched expire to be a no-op")
	}
}

func TestRedisStore_ListOps(t *testing.T) {
	_, st := setupMiniRedis(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := st.RPush(ctx, "list", []byte(v)); err != nil {
			t.Fatalf("rpush: %v", err)
		}
	}

	// FIFO drain from the left preserves arrival order.
	for _, want := range []string{"a", "b", "c"} {
		val, ok, err := st.LPop(ctx, "list")
		if err != nil {
			t.Fatalf("lpop: %v", err)
		}
		if !ok {
			t.Fatal("expected element")
		}
		if string(val) != want {
			t.Errorf("expected %q, got %q", want, val)
		}
	}

	_, ok, err := st.LPop(ctx, "list")
	if err != nil {
		t.Fatalf("lpop: %v", err)
	}
	if ok {
		t.Error("expected empty list")
	}
}

func TestRedisStore_BLPopDelivers(t *testing.T) {
	_, st := setupMiniRedis(t)
	ctx := context.Background()

	done := make(chan []byte, 1)
	go func() {
		val, ok, err := st.BLPop(ctx, "box", 2*time.Second)
		if err != nil || !ok {
			done <- nil
			return
		}
		done <- val
	}()

	time.Sleep(50 * time.Millisecond)
	if err := st.RPush(ctx, "box", []byte("payload")); err != nil {
		t.Fatalf("rpush: %v", err)
	}

	select {
	case val := <-done:
		if string(val) != "payload" {
			t.Errorf("expected payload, got %q", val)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("blpop did not return")
	}
}

func TestRedisStore_BLPopTimeout(t *testing.T) {
	_, st := setupMiniRedis(t)

	start := time.Now()
	_, ok, err := st.BLPop(context.Background(), "empty-box", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("blpop: %v", err)
	}
	if ok {
		t.Error("expected timeout, got payload")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("blpop blocked too long: %v", elapsed)
	}
}
