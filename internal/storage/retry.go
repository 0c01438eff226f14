package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy 写操作的有界重试策略
// RetryPolicy bounds retries of store writes
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy 默认重试策略 / Default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 150 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// RetryStore 为 Put/Delete/Clear 增加指数退避重试；读操作直接透传。
// RetryStore retries Put, Delete and Clear with exponential backoff; reads pass through.
type RetryStore struct {
	Store
	policy RetryPolicy
	logger *slog.Logger
}

var _ Store = (*RetryStore)(nil)

func NewRetryStore(inner Store, policy RetryPolicy, logger *slog.Logger) *RetryStore {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = DefaultRetryPolicy().InitialBackoff
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryStore{Store: inner, policy: policy, logger: logger}
}

func (r *RetryStore) Put(ctx context.Context, note Note) error {
	return r.do(ctx, "put "+note.ID, func(ctx context.Context) error {
		return r.Store.Put(ctx, note)
	})
}

func (r *RetryStore) Delete(ctx context.Context, id string) error {
	return r.do(ctx, "delete "+id, func(ctx context.Context) error {
		return r.Store.Delete(ctx, id)
	})
}

func (r *RetryStore) Clear(ctx context.Context) error {
	return r.do(ctx, "clear", r.Store.Clear)
}

func (r *RetryStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := r.backoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClosed) {
			return err
		}
		lastErr = err
		r.logger.Warn("store write failed", "op", op, "attempt", attempt+1, "max_attempts", r.policy.MaxAttempts, "error", err)
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, r.policy.MaxAttempts, lastErr)
}

func (r *RetryStore) backoff(attempt int) time.Duration {
	d := r.policy.InitialBackoff << (attempt - 1)
	if d <= 0 || d > r.policy.MaxBackoff {
		return r.policy.MaxBackoff
	}
	return d
}
