package actuation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/thermoctl/pkg/sample"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// Actuator is the proportional output, duty in [0, 1].
type Actuator interface {
	SetDuty(duty float32) error
}

// Lights drives the three status indicators.
type Lights interface {
	SetIndicators(Indicators) error
}

// Outputs applies decisions to the actuator and lights and remembers what
// was last applied. While held, outputs stay off and Apply is ignored.
type Outputs struct {
	act    Actuator
	lights Lights

	mu   sync.Mutex
	held int
	last Decision
}

// NewOutputs creates Outputs in the all-off state.
func NewOutputs(act Actuator, lights Lights) *Outputs {
	return &Outputs{act: act, lights: lights, last: Off}
}

// Apply drives both outputs unless they are held. Both are attempted even
// if the first fails.
func (o *Outputs) Apply(d Decision) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.held > 0 {
		return nil
	}
	return o.apply(d)
}

// Off zeroes the duty and every indicator.
func (o *Outputs) Off() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.apply(Off)
}

// Hold switches the outputs off and keeps them off until every returned
// release func has been called. An Apply already in flight finishes before
// the outputs go off.
func (o *Outputs) Hold() (release func(), err error) {
	o.mu.Lock()
	o.held++
	err = o.apply(Off)
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			o.held--
			o.mu.Unlock()
		})
	}, err
}

// Held reports whether a Hold is in effect.
func (o *Outputs) Held() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.held > 0
}

// Last returns the most recently applied decision.
func (o *Outputs) Last() Decision {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Outputs) apply(d Decision) error {
	d.Duty = math32.Max(0, math32.Min(1, d.Duty))

	var errs []error
	if err := o.act.SetDuty(d.Duty); err != nil {
		errs = append(errs, fmt.Errorf("set duty: %w", err))
	}
	if err := o.lights.SetIndicators(d.Indicators); err != nil {
		errs = append(errs, fmt.Errorf("set indicators: %w", err))
	}
	o.last = d
	return errors.Join(errs...)
}

// Controller periodically evaluates the policy against the latest reading.
// It polls on its own cadence and may act on a reading that is up to one
// sample interval old.
type Controller struct {
	live     *sample.Live
	store    *settings.Store
	out      *Outputs
	interval time.Duration
}

// NewController creates a Controller.
func NewController(live *sample.Live, store *settings.Store, out *Outputs, interval time.Duration) *Controller {
	return &Controller{live: live, store: store, out: out, interval: interval}
}

// Step evaluates once and applies the result.
func (c *Controller) Step() Decision {
	d := Evaluate(c.live.Reading(), c.store.Thresholds())
	if err := c.out.Apply(d); err != nil {
		log.Printf("actuation: %v", err)
	}
	return d
}

// Run is the actuation task body (Tier1).
func (c *Controller) Run(ctx context.Context, h *task.Host) error {
	return task.Every(ctx, h, c.interval, func(context.Context) { c.Step() })
}
