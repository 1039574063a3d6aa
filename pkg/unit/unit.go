// Package unit wires a board and a console link into a running controller:
// the boot-time password gate and setup wizard, then the task set.
package unit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/itohio/thermoctl/pkg/access"
	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/board"
	"github.com/itohio/thermoctl/pkg/config"
	"github.com/itohio/thermoctl/pkg/console"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/editor"
	"github.com/itohio/thermoctl/pkg/emergency"
	"github.com/itohio/thermoctl/pkg/event"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/sample"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// Unit is one controller instance.
type Unit struct {
	timing config.TimingConfig
	keys   keypad.Source
	disp   display.Display

	store  *settings.Store
	live   *sample.Live
	window *sample.Window
	fresh  *event.Flag
	out    *actuation.Outputs

	gate      *access.Gate
	wizard    *access.Wizard
	emergency *emergency.Controller
	remote    *console.Remote
	dispatch  *console.Dispatcher
	sampler   *sample.Sampler
	averager  *sample.Averager
	control   *actuation.Controller
	reporter  *actuation.Reporter

	// armed gates the push button; presses before Start are ignored.
	armed atomic.Bool
}

// Option configures a Unit.
type Option func(*Unit)

// WithKeys replaces the keypad scanner built from the board matrix.
func WithKeys(keys keypad.Source) Option {
	return func(u *Unit) { u.keys = keys }
}

// WithStore starts the unit from an existing settings store.
func WithStore(store *settings.Store) Option {
	return func(u *Unit) { u.store = store }
}

// New assembles a unit. pub may be nil.
func New(timing config.TimingConfig, b board.Board, conn console.Conn, pub actuation.Publisher, opts ...Option) *Unit {
	u := &Unit{
		timing: timing,
		disp:   b.Display(),
		live:   sample.NewLive(),
		window: sample.NewWindow(sample.WindowSize),
		fresh:  event.New(),
		out:    actuation.NewOutputs(b.Actuator(), b.Lights()),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.store == nil {
		u.store = settings.NewStore()
	}
	if u.keys == nil {
		u.keys = keypad.NewReader(keypad.NewScanner(b.Matrix(), timing.KeySettle), timing.KeyPoll)
	}

	ed := editor.New(u.keys, u.disp)
	u.gate = access.NewGate(u.store, ed, u.disp, conn, timing.Unlock)
	u.wizard = access.NewWizard(u.store, u.keys, ed, u.disp, conn, timing.Preview, timing.Confirm)
	u.emergency = emergency.New(u.store, u.out, u.disp, conn, emergency.Timing{Flash: timing.Flash, Grace: timing.Grace})
	u.remote = console.NewRemote(conn, u.store, u.out)
	u.dispatch = console.NewDispatcher(conn, u.emergency, u.remote, timing.ReadablePoll)
	u.sampler = sample.NewSampler(b.Sensor(), u.live, u.fresh, timing.Sample)
	u.averager = sample.NewAverager(u.live, u.window, u.fresh)
	u.control = actuation.NewController(u.live, u.store, u.out, timing.Actuation)
	u.reporter = actuation.NewReporter(u.live, u.store, u.out, conn, pub, u.emergency.Active, timing.Status)

	b.OnButton(u.pressButton)
	return u
}

// Store returns the live settings.
func (u *Unit) Store() *settings.Store { return u.store }

// Live returns the latest reading and average.
func (u *Unit) Live() *sample.Live { return u.live }

// Emergency returns the emergency override controller.
func (u *Unit) Emergency() *emergency.Controller { return u.emergency }

// Remote returns the remote console.
func (u *Unit) Remote() *console.Remote { return u.remote }

// Boot runs the password gate and then the setup wizard. Nothing else runs
// until both are done. A locked gate blocks until ctx is cancelled.
func (u *Unit) Boot(ctx context.Context) error {
	if err := u.gate.Run(ctx); err != nil {
		return err
	}
	custom, err := u.wizard.Run(ctx)
	if err != nil {
		return fmt.Errorf("unit: setup: %w", err)
	}
	snap := u.store.Snapshot()
	log.Printf("unit: configured (custom=%v) min=%d mid=%d max=%d timeout=%ds",
		custom, snap.Thresholds.Min, snap.Thresholds.Mid, snap.Thresholds.Max, snap.TimeoutSeconds)
	return nil
}

// Start launches every task on a new host bound to ctx.
func (u *Unit) Start(ctx context.Context) *task.Host {
	h := task.NewHost(ctx)
	u.armed.Store(true)

	h.Go(task.Tier0, "emergency", func(ctx context.Context) error { return u.emergency.Run(ctx, h) })
	h.Go(task.Tier0, "remote", func(ctx context.Context) error { return u.remote.Run(ctx, h) })
	h.Go(task.Tier0, "classifier", func(ctx context.Context) error { return u.dispatch.Classify(ctx, h) })

	h.Go(task.Tier1, "sample", func(ctx context.Context) error { return u.sampler.Run(ctx, h) })
	h.Go(task.Tier1, "average", u.averager.Run)
	h.Go(task.Tier1, "display", func(ctx context.Context) error {
		return task.Every(ctx, h, u.timing.Display, func(context.Context) { u.showTemperature() })
	})
	h.Go(task.Tier1, "actuation", func(ctx context.Context) error { return u.control.Run(ctx, h) })
	h.Go(task.Tier1, "status", func(ctx context.Context) error { return u.reporter.Run(ctx, h) })
	h.Go(task.Tier1, "readable", func(ctx context.Context) error { return u.dispatch.Poll(ctx, h) })
	return h
}

// Run boots the unit and runs its tasks until ctx is done. Outputs are
// switched off on the way out.
func (u *Unit) Run(ctx context.Context) error {
	defer func() {
		u.armed.Store(false)
		if err := u.out.Off(); err != nil {
			log.Printf("unit: outputs off: %v", err)
		}
	}()

	if err := u.Boot(ctx); err != nil {
		return err
	}
	return u.Start(ctx).Wait()
}

func (u *Unit) pressButton() {
	if !u.armed.Load() {
		log.Printf("unit: button ignored during boot")
		return
	}
	u.emergency.Trigger()
}

func (u *Unit) showTemperature() {
	u.disp.Locate(0, 0)
	u.disp.Printf("T: %3.0fC TA: %3.0fC", u.live.Reading(), u.live.Average())
}
