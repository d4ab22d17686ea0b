// Package retry runs an operation a bounded number of times with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned (wrapping the last failure) when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retry loop. The delay before attempt n+1 is BaseDelay*2^(n-1), capped at MaxDelay.
type Policy struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// Operation is one attempt; attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// NotifyFunc observes a failed attempt before the wait that follows it.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = p.MaxDelay
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = backoff.DefaultMaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = eb
	if p.BaseDelay <= 0 {
		b = &backoff.ZeroBackOff{}
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, ctx ends, or
// MaxAttempts is reached. Cancellation is observed between attempts.
func Do(ctx context.Context, p Policy, op Operation, notify NotifyFunc) error {
	attempt := 0
	permanent := false
	var last error

	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := op(ctx, attempt)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
		}
		last = err
		return err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if permanent {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, last)
}
