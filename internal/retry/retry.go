// Package retry provides the bounded-backoff wrapper every repository
// call goes through. The backing spreadsheet is rate limited and fails
// transiently; the wrapper re-attempts only failures that classify as
// retryable.
package retry

import (
	"context"
	"time"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/logger"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Backoff is BaseDelay × attempt number
}

// DefaultPolicy matches the store's observed failure profile: three
// attempts, one second of linear backoff between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Do invokes fn under the policy. Every failure is classified with op as
// context; non-retryable failures and exhausted attempts return the
// classified error. Each re-attempt is preceded by a linear backoff wait
// that respects context cancellation.
func Do[T any](ctx context.Context, op string, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalize()
	log := logger.WithComponent("retry")

	var lastErr *apperr.Error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = apperr.Classify(err, op)
		if !lastErr.Retryable || attempt == policy.MaxAttempts {
			return zero, lastErr
		}

		log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Err(lastErr).
			Msg("Operation failed, retrying")

		if err := wait(ctx, policy.BaseDelay*time.Duration(attempt)); err != nil {
			return zero, apperr.Classify(err, op)
		}
	}
	return zero, lastErr
}

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, op string, policy Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, op, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
