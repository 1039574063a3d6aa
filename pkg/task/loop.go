package task

import (
	"context"
	"time"
)

// Every runs fn on a Tier1 cadence: wait for a slice, do one unit of work,
// then sleep for interval. It returns when ctx is done.
func Every(ctx context.Context, h *Host, interval time.Duration, fn func(ctx context.Context)) error {
	for {
		if err := h.Slice(ctx); err != nil {
			return err
		}
		fn(ctx)
		if err := Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
