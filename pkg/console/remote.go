package console

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/event"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// Menu choices.
const (
	OptionPassword   = '1'
	OptionThresholds = '2'
	OptionTimeout    = '3'
	OptionTerminate  = '4'
)

const menu = "Remote session is activated\n\r" +
	"All outputs are turned off\n\r" +
	"Enter a number corresponding to any of the following options: \n\r" +
	"1. Modify Systems Startup Password\n\r" +
	"2. Modify Temperature Limit Parameters\n\r" +
	"3. Modify Emergency Timer Value\n\r" +
	"4. Terminate Session\n\r"

type remoteField struct {
	field  settings.Field
	limit  int
	prompt string // takes the current value
	from   string // takes the previous value
	to     string // takes the new value
}

var (
	passwordField = remoteField{settings.Password, settings.PasswordDigits,
		"Password is: %d\n\rEnter new password: ",
		"\n\rPassword was changed from %d", " to %d\n\r"}
	thresholdFields = []remoteField{
		{settings.Min, 3,
			"Minimum temperature is: %dC\n\rEnter new minimum temperature: ",
			"\n\rMinimum temperature changed from %dC", " to %dC\n\r"},
		{settings.Mid, 3,
			"Medium temperature is: %dC\n\rEnter new medium temperature: ",
			"\n\rMedium temperature changed from %dC", " to %dC\n\r"},
		{settings.Max, 3,
			"Maximum temperature is: %dC\n\rEnter new maximum temperature: ",
			"\n\rMaximum temperature changed from %dC", " to %dC\n\r"},
	}
	timeoutField = remoteField{settings.Timeout, 8,
		"Value of timeout timer is: %ds\n\rEnter new value: ",
		"\n\rTimeout value changed from %ds", " to %ds\n\r"}
)

// Remote is the menu-driven settings session on the serial link. Trigger
// requests a session; Run serves sessions one at a time.
type Remote struct {
	flag  *event.Flag
	conn  Conn
	store *settings.Store
	out   *actuation.Outputs

	// link is held by whoever reads from conn: a session or the classifier.
	link   sync.Mutex
	active atomic.Bool
}

// NewRemote creates a Remote.
func NewRemote(conn Conn, store *settings.Store, out *actuation.Outputs) *Remote {
	return &Remote{flag: event.New(), conn: conn, store: store, out: out}
}

// Trigger requests a session. Requests coalesce.
func (r *Remote) Trigger() {
	r.flag.Set()
}

// Active reports whether a session is in progress.
func (r *Remote) Active() bool {
	return r.active.Load()
}

// claim takes the link unless a session owns it.
func (r *Remote) claim() (release func(), ok bool) {
	if !r.link.TryLock() {
		return nil, false
	}
	return r.link.Unlock, true
}

// Run is the remote session task body (Tier0).
func (r *Remote) Run(ctx context.Context, h *task.Host) error {
	for {
		if err := r.flag.Wait(ctx); err != nil {
			return err
		}
		if err := r.Session(ctx, h); err != nil {
			return err
		}
	}
}

// Session turns every output off and serves the menu until Terminate is
// chosen. Tier1 tasks are held for the whole session.
func (r *Remote) Session(ctx context.Context, h *task.Host) error {
	release := h.Preempt("remote")
	defer release()
	unhold, err := r.out.Hold()
	if err != nil {
		log.Printf("console: outputs off: %v", err)
	}
	defer unhold()
	r.link.Lock()
	defer r.link.Unlock()
	r.active.Store(true)
	defer r.active.Store(false)

	log.Printf("console: remote session started")

	for {
		if _, err := io.WriteString(r.conn, menu); err != nil {
			return err
		}
		c, err := r.choice(ctx)
		if err != nil {
			return err
		}

		switch c {
		case OptionPassword:
			err = r.modify(ctx, passwordField)
		case OptionThresholds:
			for _, f := range thresholdFields {
				if err = r.modify(ctx, f); err != nil {
					break
				}
			}
		case OptionTimeout:
			err = r.modify(ctx, timeoutField)
		case OptionTerminate:
			_, err = io.WriteString(r.conn, "Terminating\n\r")
			log.Printf("console: remote session ended")
			return err
		}
		if err != nil {
			return err
		}
	}
}

// choice reads bytes until one names a menu option.
func (r *Remote) choice(ctx context.Context) (byte, error) {
	for {
		c, err := r.conn.Getc(ctx)
		if err != nil {
			return 0, err
		}
		if c >= OptionPassword && c <= OptionTerminate {
			return c, nil
		}
	}
}

func (r *Remote) modify(ctx context.Context, f remoteField) error {
	before := r.store.Get(f.field)
	if _, err := fmt.Fprintf(r.conn, f.prompt, before); err != nil {
		return err
	}
	v, err := ReadNumber(ctx, r.conn, f.limit)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(r.conn, f.from, before); err != nil {
		return err
	}
	r.store.Set(f.field, v)
	_, err = fmt.Fprintf(r.conn, f.to, v)
	return err
}
