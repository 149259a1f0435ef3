package core

import (
	"context"
	"fmt"
	"time"
)

// WithRetry wraps body so the pool sees a single task that internally
// re-attempts on failure, following policy's exponential backoff. The
// wrapped body still runs inside one dispatched slot for its whole retry
// sequence; retries do not re-enter the graph's readiness computation.
//
// If logger is nil, retry attempts are not logged.
func WithRetry[T any](body TaskBody[T], policy RetryPolicy, logger Logger) TaskBody[T] {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return func(ctx context.Context) (T, error) {
		var lastErr error
		for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
			v, err := body(ctx)
			if err == nil {
				if attempt > 0 {
					logger.Debug("task succeeded after retry", F("attempt", attempt))
				}
				return v, nil
			}
			lastErr = err
			logger.Warn("task failed, retrying",
				F("attempt", attempt),
				F("maxRetries", policy.MaxRetries),
				F("error", err))

			if attempt == policy.MaxRetries {
				break
			}
			delay := policy.calculateDelay(attempt)
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					var zero T
					return zero, ctx.Err()
				}
			}
		}
		var zero T
		return zero, fmt.Errorf("core: task failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
	}
}
