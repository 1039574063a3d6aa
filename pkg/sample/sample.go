package sample

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/thermoctl/pkg/event"
	"github.com/itohio/thermoctl/pkg/task"
)

const (
	// Scale converts the normalized sensor input to degrees Celsius.
	Scale = 100

	// InitialReading and InitialAverage are the values published before the
	// first sample lands.
	InitialReading = 22
	InitialAverage = 20
)

// Sensor is a normalized analog input in [0, 1].
type Sensor interface {
	Read() (float32, error)
}

// Live holds the latest reading and rolling mean. Only the sampler writes
// the reading and only the averager writes the mean; any task may read
// either.
type Live struct {
	reading atomic.Uint32
	average atomic.Uint32

	cbMu      sync.RWMutex
	callbacks []func(reading, average float32)
}

// NewLive creates Live readings seeded with the initial values.
func NewLive() *Live {
	l := &Live{}
	l.reading.Store(math.Float32bits(InitialReading))
	l.average.Store(math.Float32bits(InitialAverage))
	return l
}

// Reading returns the latest temperature in Celsius.
func (l *Live) Reading() float32 {
	return math.Float32frombits(l.reading.Load())
}

// Average returns the latest rolling mean in Celsius.
func (l *Live) Average() float32 {
	return math.Float32frombits(l.average.Load())
}

// SetReading publishes a new reading.
func (l *Live) SetReading(v float32) {
	l.reading.Store(math.Float32bits(v))
	l.notify()
}

// SetAverage publishes a new mean.
func (l *Live) SetAverage(v float32) {
	l.average.Store(math.Float32bits(v))
	l.notify()
}

// OnUpdate registers a callback invoked after every publish.
func (l *Live) OnUpdate(fn func(reading, average float32)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

func (l *Live) notify() {
	l.cbMu.RLock()
	cbs := l.callbacks
	l.cbMu.RUnlock()
	r, a := l.Reading(), l.Average()
	for _, cb := range cbs {
		cb(r, a)
	}
}

// Celsius converts a normalized sensor value, clamped to [0, 1].
func Celsius(normalized float32) float32 {
	return math32.Max(0, math32.Min(1, normalized)) * Scale
}

// Sampler reads the sensor on a fixed cadence, publishes the reading and
// then raises fresh so the averager consumes it exactly once.
type Sampler struct {
	sensor   Sensor
	live     *Live
	fresh    *event.Flag
	interval time.Duration
}

// NewSampler creates a Sampler.
func NewSampler(sensor Sensor, live *Live, fresh *event.Flag, interval time.Duration) *Sampler {
	return &Sampler{sensor: sensor, live: live, fresh: fresh, interval: interval}
}

// Sample takes one reading. A failed read keeps the previous reading and
// does not signal the averager.
func (s *Sampler) Sample() {
	raw, err := s.sensor.Read()
	if err != nil {
		log.Printf("sampler: read failed: %v", err)
		return
	}
	s.live.SetReading(Celsius(raw))
	s.fresh.Set()
}

// Run is the sampler task body (Tier1).
func (s *Sampler) Run(ctx context.Context, h *task.Host) error {
	return task.Every(ctx, h, s.interval, func(context.Context) { s.Sample() })
}
