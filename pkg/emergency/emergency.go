// Package emergency implements the signal-triggered override that zeroes all
// outputs for a configurable number of seconds.
package emergency

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/event"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// State of the controller.
type State int32

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Frames alternated on row 0 while active.
const (
	FramePlain = "   EMERGENCY    "
	FrameBang  = "!! EMERGENCY !! "
)

// blankHold keeps the display empty after the override ends.
const blankHold = 100 * time.Millisecond

// Timing of the override.
type Timing struct {
	Flash time.Duration // frame toggle and countdown refresh
	Grace time.Duration // hold after the countdown expires
}

// Controller is the emergency override. Trigger sets its flag; Run consumes
// it, keeps all outputs off for the configured timeout and re-arms.
type Controller struct {
	flag   *event.Flag
	store  *settings.Store
	out    *actuation.Outputs
	disp   display.Display
	w      io.Writer
	timing Timing

	state atomic.Int32
	now   func() time.Time
}

// New creates an idle Controller.
func New(store *settings.Store, out *actuation.Outputs, disp display.Display, w io.Writer, timing Timing) *Controller {
	return &Controller{
		flag:   event.New(),
		store:  store,
		out:    out,
		disp:   disp,
		w:      w,
		timing: timing,
		now:    time.Now,
	}
}

// Trigger requests an override. It never blocks and is safe to call from an
// edge handler. Triggers while active are ignored.
func (c *Controller) Trigger() {
	c.flag.Set()
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Active reports whether an override is in progress.
func (c *Controller) Active() bool {
	return c.State() == Active
}

// Run is the emergency task body (Tier0).
func (c *Controller) Run(ctx context.Context, h *task.Host) error {
	for {
		if err := c.flag.Wait(ctx); err != nil {
			return err
		}
		if err := c.override(ctx, h); err != nil {
			return err
		}
	}
}

func (c *Controller) override(ctx context.Context, h *task.Host) error {
	release := h.Preempt("emergency")
	defer release()

	unhold, err := c.out.Hold()
	if err != nil {
		log.Printf("emergency: outputs off: %v", err)
	}
	defer unhold()
	c.state.Store(int32(Active))
	defer c.state.Store(int32(Idle))

	timeout := c.store.TimeoutSeconds()
	log.Printf("emergency: active for %ds", timeout)

	start := c.now()
	bang := false
	for {
		elapsed := c.now().Sub(start)
		if int(elapsed.Seconds()) >= timeout {
			break
		}
		c.disp.Locate(0, 0)
		if bang {
			c.disp.Printf(FrameBang)
		} else {
			c.disp.Printf(FramePlain)
		}
		bang = !bang
		c.disp.Locate(0, 1)
		c.disp.Printf("Back In: %2d     ", timeout-int(elapsed.Seconds()))
		fmt.Fprintf(c.w, " Emergency: timer = %f\r\n", elapsed.Seconds())

		if err := task.Sleep(ctx, c.timing.Flash); err != nil {
			return err
		}
	}

	if err := task.Sleep(ctx, c.timing.Grace); err != nil {
		return err
	}
	c.disp.Cls()
	if err := task.Sleep(ctx, blankHold); err != nil {
		return err
	}
	c.flag.Clear()
	log.Printf("emergency: re-armed")
	return nil
}
