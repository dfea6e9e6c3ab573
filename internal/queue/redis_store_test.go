package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestStore connects to REDIS_ADDR and skips when no server is reachable.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewRedisStore(client)
}

func TestReleaseLockIgnoresForeignToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	t.Cleanup(func() { store.client.Del(ctx, lockKeyPrefix+name) })

	token, ok, err := store.AcquireLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock() = %v, %v", ok, err)
	}

	if _, ok, _ := store.AcquireLock(ctx, name, time.Minute); ok {
		t.Fatal("second AcquireLock() succeeded while held")
	}

	if err := store.ReleaseLock(ctx, name, "stale-token"); err != nil {
		t.Fatalf("ReleaseLock() error = %v", err)
	}
	if got, _ := store.client.Get(ctx, lockKeyPrefix+name).Result(); got != token {
		t.Errorf("got lock value %q after foreign release, want %q", got, token)
	}

	if err := store.ReleaseLock(ctx, name, token); err != nil {
		t.Fatalf("ReleaseLock() error = %v", err)
	}
	if _, ok, _ := store.AcquireLock(ctx, name, time.Minute); !ok {
		t.Error("AcquireLock() after owner release = false, want true")
	}
}

func TestMarkOnceAndForget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()
	t.Cleanup(func() { store.Forget(ctx, key) })

	first, err := store.MarkOnce(ctx, key, time.Minute)
	if err != nil || !first {
		t.Fatalf("MarkOnce() = %v, %v, want true", first, err)
	}
	if again, _ := store.MarkOnce(ctx, key, time.Minute); again {
		t.Error("second MarkOnce() = true, want false")
	}

	if err := store.Forget(ctx, key); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if again, _ := store.MarkOnce(ctx, key, time.Minute); !again {
		t.Error("MarkOnce() after Forget = false, want true")
	}
}
