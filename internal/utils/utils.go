package utils

import (
	"context"
	"time"
)

// WaitFor blocks for the given duration or until the context is canceled,
// whichever comes first. Used for backoff between generation retries.
func WaitFor(ctx context.Context, d time.Duration) error {
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
