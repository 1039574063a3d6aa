package console

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/itohio/thermoctl/pkg/event"
	"github.com/itohio/thermoctl/pkg/task"
)

// Trigger is anything a keystroke can wake.
type Trigger interface {
	Trigger()
}

// Dispatcher watches the link for input and routes single keystrokes: E or
// e wakes the emergency override, R or r opens a remote session, anything
// else is dropped.
type Dispatcher struct {
	conn      Conn
	wake      *event.Flag
	emergency Trigger
	remote    *Remote
	poll      time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(conn Conn, emergency Trigger, remote *Remote, poll time.Duration) *Dispatcher {
	return &Dispatcher{
		conn:      conn,
		wake:      event.New(),
		emergency: emergency,
		remote:    remote,
		poll:      poll,
	}
}

// Poll is the readable-poll task body (Tier1). It wakes the classifier when
// input is waiting.
func (d *Dispatcher) Poll(ctx context.Context, h *task.Host) error {
	return task.Every(ctx, h, d.poll, func(context.Context) {
		if d.conn.Readable() && !d.wake.IsSet() {
			if _, err := io.WriteString(d.conn, "The input has been detected, analyzing the key...\n\r"); err != nil {
				log.Printf("console: write failed: %v", err)
			}
			d.wake.Set()
		}
	})
}

// Classify is the classifier task body (Tier0). It reads one byte per wake,
// and only if one is still waiting and no remote session owns the link.
func (d *Dispatcher) Classify(ctx context.Context, h *task.Host) error {
	for {
		if err := d.wake.Wait(ctx); err != nil {
			return err
		}
		unlock, ok := d.remote.claim()
		if !ok {
			continue
		}
		err := d.classify(ctx, h)
		unlock()
		if err != nil {
			return err
		}
	}
}

func (d *Dispatcher) classify(ctx context.Context, h *task.Host) error {
	if !d.conn.Readable() {
		return nil
	}
	release := h.Preempt("classifier")
	defer release()

	c, err := d.conn.Getc(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.conn, "Entered keyboard input: %c\n\r", c)

	switch c {
	case 'E', 'e':
		log.Printf("console: emergency requested from the link")
		d.emergency.Trigger()
	case 'R', 'r':
		log.Printf("console: remote session requested")
		d.remote.Trigger()
	}
	return nil
}
