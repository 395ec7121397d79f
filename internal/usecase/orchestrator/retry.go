package orchestrator

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain"
)

// withRetry executes fn with bounded attempts and exponential backoff.
// Only transient failures (rate limit, provider unavailable) are retried;
// permanent rejections and context cancellation return immediately.
func withRetry[T any](ctx context.Context, attempts int, base, maxBackoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := base

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !domain.IsTransient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}

	return zero, lastErr
}
