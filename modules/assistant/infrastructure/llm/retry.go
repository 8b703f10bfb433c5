package llm

import (
	"context"
	"time"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// withRetry runs fn up to maxAttempts times with a linearly increasing delay
// between failures (attempt index times baseDelay). The last error is
// returned once the budget is spent. sleep is injectable for tests.
func withRetry[T any](
	ctx context.Context,
	maxAttempts int,
	baseDelay time.Duration,
	sleep sleepFunc,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*baseDelay); err != nil {
				return zero, err
			}
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return zero, lastErr
}
