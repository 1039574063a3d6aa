package event

import (
	"context"
)

// Flag is a sticky, single-slot event between one producer side and exactly
// one waiting consumer. Any number of Set calls made before a Wait coalesce
// into a single wake; the flag never counts.
type Flag struct {
	ch chan struct{}
}

// New creates a cleared Flag.
func New() *Flag {
	return &Flag{ch: make(chan struct{}, 1)}
}

// Set raises the flag. It never blocks, so it is safe to call from an edge
// handler or any other context that must return immediately.
func (f *Flag) Set() {
	select {
	case f.ch <- struct{}{}:
	default:
		// Already raised.
	}
}

// Wait blocks until the flag is raised, then consumes it.
func (f *Flag) Wait(ctx context.Context) error {
	select {
	case <-f.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops a pending raise, if any.
func (f *Flag) Clear() {
	select {
	case <-f.ch:
	default:
	}
}

// IsSet reports whether a raise is pending.
func (f *Flag) IsSet() bool {
	return len(f.ch) > 0
}
