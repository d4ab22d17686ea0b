package cache

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"
)

// missMarker is stored for keys whose loader found nothing.
const missMarker = "\x00miss"

// ReadThrough stores JSON documents in front of a slower loader.
// A nil Cache passes every call straight to the loader.
type ReadThrough struct {
	Cache   Cache
	TTL     time.Duration
	MissTTL time.Duration
}

// LoadJSON returns the cached document for key, or calls load and caches
// its result. A nil document from load is remembered for MissTTL.
// Cache failures never fail the read.
func LoadJSON[T any](ctx context.Context, rt ReadThrough, key string, load func(context.Context) (*T, error)) (*T, error) {
	if rt.Cache == nil {
		return load(ctx)
	}
	if raw, err := rt.Cache.Get(ctx, key); err == nil && raw != "" {
		if raw == missMarker {
			return nil, nil
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err == nil {
			return &doc, nil
		}
	}

	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		if rt.MissTTL > 0 {
			_ = rt.Cache.Set(ctx, key, missMarker, rt.MissTTL)
		}
		return nil, nil
	}
	if raw, err := json.Marshal(doc); err == nil {
		_ = rt.Cache.Set(ctx, key, string(raw), Spread(rt.TTL))
	}
	return doc, nil
}

// Spread trims up to a tenth off ttl so entries filled together expire apart.
func Spread(ttl time.Duration) time.Duration {
	if ttl < 10 {
		return ttl
	}
	return ttl - rand.N(ttl/10+1)
}
