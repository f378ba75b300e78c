package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a context cancelled after timeout. A zero timeout
// runs fn unbounded. fn is abandoned, not stopped, when the limit passes, so
// it must honour ctx. Cancellation of the parent context is returned as a
// Permanent error so Retry stops at once.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return Permanent(fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err()))
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return Permanent(fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err()))
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
