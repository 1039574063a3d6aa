package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Tier is a scheduling priority tier.
type Tier int

const (
	// Tier0 tasks run to completion once they are active: while any of them
	// holds the host, Tier1 tasks do not get a slice.
	Tier0 Tier = iota
	// Tier1 tasks share the remaining time round-robin.
	Tier1
)

func (t Tier) String() string {
	switch t {
	case Tier0:
		return "tier0"
	case Tier1:
		return "tier1"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Func is the body of a task. It returns only when ctx is done or on a fault.
type Func func(ctx context.Context) error

// Host runs tasks in two tiers. Tier0 tasks bracket their active sections
// with Preempt; Tier1 tasks call Slice before each unit of work and are held
// there while any Tier0 task is active.
type Host struct {
	mu      sync.Mutex
	active  int
	holders map[string]int
	idle    chan struct{} // closed while no Tier0 task is active

	g   *errgroup.Group
	ctx context.Context
}

// NewHost creates a task host bound to ctx.
func NewHost(ctx context.Context) *Host {
	g, gctx := errgroup.WithContext(ctx)
	idle := make(chan struct{})
	close(idle)
	return &Host{
		holders: make(map[string]int),
		idle:    idle,
		g:       g,
		ctx:     gctx,
	}
}

// Go starts a task in the given tier.
func (h *Host) Go(tier Tier, name string, fn Func) {
	h.g.Go(func() error {
		log.Printf("task %s started (%s)", name, tier)
		err := fn(h.ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("task %s: %w", name, err)
	})
}

// Context returns the context tasks run under.
func (h *Host) Context() context.Context {
	return h.ctx
}

// Preempt marks a Tier0 task active. Tier1 tasks stall at their next Slice
// until every returned release func has been called.
func (h *Host) Preempt(name string) (release func()) {
	h.mu.Lock()
	if h.active == 0 {
		h.idle = make(chan struct{})
	}
	h.active++
	h.holders[name]++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.active--
			if h.holders[name]--; h.holders[name] == 0 {
				delete(h.holders, name)
			}
			if h.active == 0 {
				close(h.idle)
			}
		})
	}
}

// Preempted reports whether any Tier0 task is active.
func (h *Host) Preempted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active > 0
}

// Slice blocks a Tier1 task until no Tier0 task is active.
func (h *Host) Slice(ctx context.Context) error {
	for {
		h.mu.Lock()
		if h.active == 0 {
			h.mu.Unlock()
			return nil
		}
		idle := h.idle
		h.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until all tasks have returned and reports the first fault.
func (h *Host) Wait() error {
	return h.g.Wait()
}
