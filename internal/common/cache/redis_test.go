package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheIncrAndExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		got, err := c.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != i {
			t.Fatalf("expected %d, got %d", i, got)
		}
	}
	if err := c.Expire(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if ttl := mr.TTL("counter"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", ttl)
	}
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t)
	got, err := c.Get(context.Background(), "missing")
	if err != nil || got != "" {
		t.Fatalf("expected empty value and nil error, got %q %v", got, err)
	}
}

type doc struct {
	Name string `json:"name"`
}

func TestLoadJSON(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	rt := ReadThrough{Cache: c, TTL: time.Minute, MissTTL: 30 * time.Second}

	calls := 0
	load := func(context.Context) (*doc, error) {
		calls++
		return &doc{Name: "py-1"}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := LoadJSON(ctx, rt, "q:py-1", load)
		if err != nil || got == nil || got.Name != "py-1" {
			t.Fatalf("unexpected result %+v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}

	misses := 0
	miss := func(context.Context) (*doc, error) {
		misses++
		return nil, nil
	}
	for i := 0; i < 2; i++ {
		got, err := LoadJSON(ctx, rt, "q:absent", miss)
		if err != nil || got != nil {
			t.Fatalf("expected cached miss, got %+v %v", got, err)
		}
	}
	if misses != 1 {
		t.Fatalf("expected miss to be cached, got %d loads", misses)
	}
	if ttl := mr.TTL("q:absent"); ttl != 30*time.Second {
		t.Fatalf("miss ttl = %s", ttl)
	}

	boom := errors.New("boom")
	_, err := LoadJSON(ctx, rt, "q:err", func(context.Context) (*doc, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if mr.Exists("q:err") {
		t.Fatalf("load errors must not be cached")
	}
}

func TestLoadJSONWithoutCache(t *testing.T) {
	calls := 0
	for i := 0; i < 3; i++ {
		_, _ = LoadJSON(context.Background(), ReadThrough{}, "k", func(context.Context) (*doc, error) {
			calls++
			return &doc{}, nil
		})
	}
	if calls != 3 {
		t.Fatalf("expected every call to load, got %d", calls)
	}
}

func TestSpread(t *testing.T) {
	ttl := 10 * time.Minute
	for i := 0; i < 20; i++ {
		got := Spread(ttl)
		if got > ttl || got < ttl-ttl/10 {
			t.Fatalf("spread out of range: %s", got)
		}
	}
	if Spread(0) != 0 {
		t.Fatalf("expected zero ttl unchanged")
	}
}
