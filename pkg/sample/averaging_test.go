package sample

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/thermoctl/pkg/event"
)

func mean(vs []float32) float32 {
	var s float64
	for _, v := range vs {
		s += float64(v)
	}
	return float32(s / float64(len(vs)))
}

func TestWindow_EmptyAverageIsZero(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, WindowSize, w.Cap())
	assert.Equal(t, float32(0), w.Average())
	assert.Empty(t, w.Values())
}

func TestWindow_PartialFillAveragesFilledSlotsOnly(t *testing.T) {
	for n := 1; n <= WindowSize; n++ {
		w := NewWindow(WindowSize)
		var in []float32
		for i := range n {
			v := float32(i*7 + 3)
			in = append(in, v)
			w.Enqueue(v)
		}
		assert.Equal(t, n, w.Len())
		assert.InDelta(t, mean(in), w.Average(), 1e-4, "n=%d", n)
		assert.Equal(t, in, w.Values())
	}
}

func TestWindow_EvictsOldestOnceFull(t *testing.T) {
	w := NewWindow(WindowSize)
	in := []float32{1000, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for _, v := range in {
		w.Enqueue(v)
	}

	assert.Equal(t, WindowSize, w.Len(), "fill count saturates")
	assert.InDelta(t, 5.5, w.Average(), 1e-4, "first value excluded")
	assert.Equal(t, in[1:], w.Values())
}

func TestWindow_LongRunKeepsLastTen(t *testing.T) {
	w := NewWindow(WindowSize)
	var in []float32
	for i := range 37 {
		v := float32(i) * 1.5
		in = append(in, v)
		w.Enqueue(v)
	}
	assert.InDelta(t, mean(in[len(in)-WindowSize:]), w.Average(), 1e-4)
}

func TestAverager_ConsumesEachSignalOnce(t *testing.T) {
	live := NewLive()
	w := NewWindow(WindowSize)
	fresh := event.New()
	a := NewAverager(live, w, fresh)

	// Redundant raises before the averager waits coalesce into one sample.
	live.SetReading(30)
	fresh.Set()
	fresh.Set()
	fresh.Set()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Len() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, w.Len(), "no duplicate enqueue without a new signal")
	assert.InDelta(t, 30, live.Average(), 1e-4)

	live.SetReading(40)
	fresh.Set()
	require.Eventually(t, func() bool { return w.Len() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return live.Average() > 34.9 }, time.Second, time.Millisecond)
	assert.InDelta(t, 35, live.Average(), 1e-4)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
