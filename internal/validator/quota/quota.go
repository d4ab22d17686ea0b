// Package quota counts remote executions per UTC day.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"debugoj/internal/common/cache"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	keyPrefix = "validator:remote:calls:"
	keyTTL    = 48 * time.Hour
)

// Config bounds remote executions per day. A DailyLimit of zero disables the limit.
type Config struct {
	DailyLimit int64 `yaml:"dailyLimit"`
}

// Counter admits remote invocations and reports today's usage.
type Counter interface {
	Allow(ctx context.Context) (bool, error)
	Used(ctx context.Context) (int64, error)
	Limit() int64
}

// Usage is a snapshot for status endpoints.
type Usage struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

func dayKey(now time.Time) string {
	return keyPrefix + now.UTC().Format("20060102")
}

// RedisCounter shares the counter across replicas through INCR.
type RedisCounter struct {
	cache cache.Cache
	limit int64
	now   func() time.Time
}

func NewRedisCounter(c cache.Cache, cfg Config) *RedisCounter {
	return &RedisCounter{cache: c, limit: cfg.DailyLimit, now: time.Now}
}

// Allow increments today's counter. On Redis failure it admits the call and
// returns the error for the caller to log.
func (r *RedisCounter) Allow(ctx context.Context) (bool, error) {
	key := dayKey(r.now())
	n, err := r.cache.Incr(ctx, key)
	if err != nil {
		return true, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.cache.Expire(ctx, key, keyTTL); err != nil {
			logger.Warn(ctx, "set quota key ttl failed", zap.String("key", key), zap.Error(err))
		}
	}
	return r.limit <= 0 || n <= r.limit, nil
}

func (r *RedisCounter) Used(ctx context.Context) (int64, error) {
	raw, err := r.cache.Get(ctx, dayKey(r.now()))
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (r *RedisCounter) Limit() int64 { return r.limit }

// MemoryCounter is the single-process fallback when Redis is not configured.
type MemoryCounter struct {
	mu    sync.Mutex
	day   string
	count int64
	limit int64
	now   func() time.Time
}

func NewMemoryCounter(cfg Config) *MemoryCounter {
	return &MemoryCounter{limit: cfg.DailyLimit, now: time.Now}
}

func (m *MemoryCounter) Allow(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	m.count++
	return m.limit <= 0 || m.count <= m.limit, nil
}

func (m *MemoryCounter) Used(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.count, nil
}

func (m *MemoryCounter) Limit() int64 { return m.limit }

func (m *MemoryCounter) rollover() {
	if day := dayKey(m.now()); day != m.day {
		m.day = day
		m.count = 0
	}
}

// Snapshot reads usage without failing; errors are logged and reported as zero.
func Snapshot(ctx context.Context, c Counter) Usage {
	used, err := c.Used(ctx)
	if err != nil {
		logger.Warn(ctx, "read quota usage failed", zap.Error(err))
	}
	return Usage{Used: used, Limit: c.Limit()}
}
