package sample

import (
	"context"
	"sync"

	"github.com/itohio/thermoctl/pkg/event"
)

// WindowSize is the capacity of the moving average.
const WindowSize = 10

// Window is a fixed-capacity ring of readings with a running mean over the
// filled slots only. Once full, each Enqueue evicts the oldest reading.
type Window struct {
	mu    sync.Mutex
	buf   []float32
	next  int
	count int
}

// NewWindow creates a window of the given capacity (WindowSize when <= 0).
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowSize
	}
	return &Window{buf: make([]float32, capacity)}
}

// Enqueue writes v into the next slot, overwriting the oldest once full.
func (w *Window) Enqueue(v float32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Average returns the mean of the filled slots, or 0 when empty.
func (w *Window) Average() float32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return 0
	}
	var sum float64
	for i := range w.count {
		sum += float64(w.buf[i])
	}
	return float32(sum / float64(w.count))
}

// Len returns the number of filled slots.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Values returns the filled slots oldest first.
func (w *Window) Values() []float32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float32, 0, w.count)
	start := 0
	if w.count == len(w.buf) {
		start = w.next
	}
	for i := range w.count {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

// Averager consumes fresh-sample signals: each wake enqueues the current
// reading exactly once and publishes the new mean.
type Averager struct {
	live   *Live
	window *Window
	fresh  *event.Flag
}

// NewAverager creates an Averager fed by fresh.
func NewAverager(live *Live, window *Window, fresh *event.Flag) *Averager {
	return &Averager{live: live, window: window, fresh: fresh}
}

// Run is the averager task body.
func (a *Averager) Run(ctx context.Context) error {
	for {
		if err := a.fresh.Wait(ctx); err != nil {
			return err
		}
		a.window.Enqueue(a.live.Reading())
		a.live.SetAverage(a.window.Average())
	}
}
