package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single render when none is configured.
const DefaultTimeout = 2 * time.Second

// WithDeadline runs op with a deadline of d. If op does not return in time
// the call returns ErrTimeout and op keeps running in the background with a
// cancelled context.
func WithDeadline(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		d = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
