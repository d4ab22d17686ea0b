package runtime

import (
	"context"
	"sync"

	"debugoj/internal/validator/model"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InitFunc performs the cold start of a substrate and returns its handle.
type InitFunc func(ctx context.Context) (any, error)

// SubstrateStats reports the bootstrap state of one substrate.
type SubstrateStats struct {
	Ready bool  `json:"ready"`
	Inits int64 `json:"inits"`
}

// Bootstrapper owns the runtime handles of every substrate. Concurrent callers
// for the same substrate share one in-flight initialisation; successful
// handles are cached for the process lifetime and failures are not.
type Bootstrapper struct {
	group singleflight.Group

	mu      sync.RWMutex
	handles map[model.Substrate]any
	inits   map[model.Substrate]int64
}

func NewBootstrapper() *Bootstrapper {
	return &Bootstrapper{
		handles: make(map[model.Substrate]any),
		inits:   make(map[model.Substrate]int64),
	}
}

// Acquire returns the cached handle for substrate, running init at most once
// at a time. The caller's ctx bounds only its own wait.
func (b *Bootstrapper) Acquire(ctx context.Context, substrate model.Substrate, init InitFunc) (any, error) {
	if handle, ok := b.cached(substrate); ok {
		return handle, nil
	}

	ch := b.group.DoChan(string(substrate), func() (any, error) {
		if handle, ok := b.cached(substrate); ok {
			return handle, nil
		}
		b.mu.Lock()
		b.inits[substrate]++
		b.mu.Unlock()

		logger.Info(ctx, "bootstrapping runtime", zap.String("substrate", string(substrate)))
		handle, err := init(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warn(ctx, "runtime bootstrap failed", zap.String("substrate", string(substrate)), zap.Error(err))
			return nil, err
		}

		b.mu.Lock()
		b.handles[substrate] = handle
		b.mu.Unlock()
		return handle, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Inits is the number of initialisations started for substrate.
func (b *Bootstrapper) Inits(substrate model.Substrate) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.inits[substrate]
}

// Stats snapshots every substrate that has been touched.
func (b *Bootstrapper) Stats() map[model.Substrate]SubstrateStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[model.Substrate]SubstrateStats, len(b.inits))
	for substrate, n := range b.inits {
		_, ready := b.handles[substrate]
		out[substrate] = SubstrateStats{Ready: ready, Inits: n}
	}
	return out
}

func (b *Bootstrapper) cached(substrate model.Substrate) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handle, ok := b.handles[substrate]
	return handle, ok
}

// acquire is the typed form of Bootstrapper.Acquire.
func acquire[T any](ctx context.Context, b *Bootstrapper, substrate model.Substrate, init func(context.Context) (T, error)) (T, error) {
	var zero T
	handle, err := b.Acquire(ctx, substrate, func(ctx context.Context) (any, error) {
		return init(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := handle.(T)
	if !ok {
		return zero, errHandleType
	}
	return typed, nil
}
