package quota

import (
	"context"
	"testing"
	"time"

	"debugoj/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCounter(t *testing.T, limit int64) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	counter := NewRedisCounter(c, Config{DailyLimit: limit})
	counter.now = func() time.Time { return time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC) }
	return counter, mr
}

func TestRedisCounterEnforcesDailyLimit(t *testing.T) {
	counter, mr := newRedisCounter(t, 2)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := counter.Allow(ctx)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("allow %d = %v, want %v", i, ok, want)
		}
	}
	if used, _ := counter.Used(ctx); used != 3 {
		t.Fatalf("expected 3 attempts counted, got %d", used)
	}
	if ttl := mr.TTL("validator:remote:calls:20260307"); ttl != keyTTL {
		t.Fatalf("expected 48h ttl, got %s", ttl)
	}
}

func TestRedisCounterToleratesOutage(t *testing.T) {
	counter, mr := newRedisCounter(t, 1)
	mr.Close()

	ok, err := counter.Allow(context.Background())
	if err == nil {
		t.Fatalf("expected the redis error to be reported")
	}
	if !ok {
		t.Fatalf("redis outage must not block executions")
	}
	usage := Snapshot(context.Background(), counter)
	if usage.Used != 0 || usage.Limit != 1 {
		t.Fatalf("unexpected snapshot %+v", usage)
	}
}

func TestMemoryCounterRollsOver(t *testing.T) {
	t.Parallel()
	day := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter(Config{DailyLimit: 1})
	counter.now = func() time.Time { return day }
	ctx := context.Background()

	if ok, _ := counter.Allow(ctx); !ok {
		t.Fatalf("first call must be allowed")
	}
	if ok, _ := counter.Allow(ctx); ok {
		t.Fatalf("second call must exceed the limit")
	}
	day = day.Add(24 * time.Hour)
	if ok, _ := counter.Allow(ctx); !ok {
		t.Fatalf("counter must reset on a new day")
	}
	if used, _ := counter.Used(ctx); used != 1 {
		t.Fatalf("expected 1 call today, got %d", used)
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()
	counter := NewMemoryCounter(Config{})
	for i := 0; i < 100; i++ {
		if ok, _ := counter.Allow(context.Background()); !ok {
			t.Fatalf("zero limit means unlimited")
		}
	}
}
