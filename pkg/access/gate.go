package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/editor"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// MaxAttempts is how many wrong passwords lock the unit.
const MaxAttempts = 3

// Password field position on the display.
const (
	passwordCol = 4
	passwordRow = 1
)

// ErrLocked is returned by Gate.Run when the unit locked itself and the
// lockout wait was then cancelled. Without cancellation a locked gate never
// returns.
var ErrLocked = errors.New("access: locked after too many failed attempts")

// Gate is the startup password lock.
type Gate struct {
	store *settings.Store
	ed    *editor.LineEditor
	disp  display.Display
	w     io.Writer
	hold  time.Duration
}

// NewGate creates a Gate. hold is how long the UNLOCKED banner stays up.
func NewGate(store *settings.Store, ed *editor.LineEditor, disp display.Display, w io.Writer, hold time.Duration) *Gate {
	return &Gate{store: store, ed: ed, disp: disp, w: w, hold: hold}
}

// Run asks for the password until it matches or MaxAttempts wrong entries
// have been made. After the last wrong entry the gate stops accepting input
// and blocks until ctx is done.
func (g *Gate) Run(ctx context.Context) error {
	g.disp.Cls()
	g.disp.Locate(0, 0)
	g.disp.Printf("     LOCKED     ")
	log.Printf("access: waiting for password")

	correct := false
	for left := MaxAttempts; left > 0; {
		v, err := g.ed.Edit(ctx, passwordCol, passwordRow, settings.PasswordDigits)
		if err != nil {
			return err
		}
		if v == g.store.Password() {
			fmt.Fprint(g.w, "Password is correct! Entered system.\n\r")
			correct = true
			break
		}
		left--
		fmt.Fprint(g.w, "Entered password is wrong!\n\r")
		log.Printf("access: wrong password, %d attempts left", left)
		g.disp.Locate(0, 0)
		g.disp.Printf("Wrong:%d attempts", left)
	}

	g.disp.Cls()
	g.disp.Locate(0, 0)
	if !correct {
		g.disp.Printf("     LOCKED     ")
		fmt.Fprint(g.w, "The system has been locked due to many failed attempts.\n\r")
		log.Printf("access: locked")
		<-ctx.Done()
		return fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
	}

	g.disp.Printf("    UNLOCKED    ")
	fmt.Fprint(g.w, "The system has been unlocked.\n\r")
	log.Printf("access: unlocked")
	return task.Sleep(ctx, g.hold)
}
