package access

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/editor"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// Wizard keys.
const (
	Custom  = keypad.KeyC
	Default = keypad.KeyD
	Yes     = keypad.KeyA
	No      = keypad.KeyB
)

// doneHold keeps the DONE! banner up after a field edit.
const doneHold = 100 * time.Millisecond

type fieldEdit struct {
	field  settings.Field
	header string // shown on row 0 with the current value
	prompt string // serial line, may take the current value
	done   string // serial line, takes the new value
	col    int
	size   int
}

var customFlow = []fieldEdit{
	{settings.Min, "TempMin = %3dC  ", "Prompting the user to change temperature minimum.\n\r", "Temperature Minimum changed to: %d\n\r", 6, 3},
	{settings.Mid, "TempMid = %3dC  ", "Prompting the user to change temperature average.\n\r", "Temperature Medium changed to: %d\n\r", 6, 3},
	{settings.Max, "TempMax = %3dC  ", "Prompting the user to change temperature maximum.\n\r", "Temperature Maximum changed to: %d\n\r", 6, 3},
	{settings.Timeout, "TIMEOUT = %3d    ", "Prompting the user to change the emergency timer value from: %d.\n\r", "Emergency timer value changed to: %d\n\r", 6, 3},
	{settings.Password, "PASS = %8d", "Prompting the user to change the password from: %d.\n\r", "Password changed to: %d\n\r", 4, settings.PasswordDigits},
}

// Wizard is the first-boot choice between the compiled-in defaults and a
// custom configuration entered on the keypad.
type Wizard struct {
	store   *settings.Store
	keys    keypad.Source
	ed      *editor.LineEditor
	disp    display.Display
	w       io.Writer
	preview time.Duration
	confirm time.Duration
	poll    time.Duration
}

// NewWizard creates a Wizard. preview is the rotation period of the
// threshold previews on the main screen, confirm the one on the
// confirmation screen.
func NewWizard(store *settings.Store, keys keypad.Source, ed *editor.LineEditor, disp display.Display, w io.Writer, preview, confirm time.Duration) *Wizard {
	return &Wizard{
		store:   store,
		keys:    keys,
		ed:      ed,
		disp:    disp,
		w:       w,
		preview: preview,
		confirm: confirm,
		poll:    keypad.DefaultPoll,
	}
}

// Run shows the Custom/Default screen and returns once the configuration is
// settled. It reports whether the custom flow was run.
func (z *Wizard) Run(ctx context.Context) (bool, error) {
	custom, err := z.choose(ctx)
	if err != nil {
		return false, err
	}
	if !custom {
		log.Printf("wizard: keeping defaults")
		return false, nil
	}
	log.Printf("wizard: entering custom configuration")
	for _, fe := range customFlow {
		if err := z.edit(ctx, fe); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (z *Wizard) previews() [3]string {
	th := z.store.Thresholds()
	return [3]string{
		fmt.Sprintf("TempLow = %3dC  ", th.Min),
		fmt.Sprintf("TempMid = %3dC  ", th.Mid),
		fmt.Sprintf("TempHigh = %3dC ", th.Max),
	}
}

func (z *Wizard) choose(ctx context.Context) (bool, error) {
	z.disp.Locate(0, 0)
	z.disp.Printf("Custom/Default?")

	rotate := time.NewTicker(z.preview)
	defer rotate.Stop()

	count := 0
	for {
		z.disp.Locate(0, 1)
		z.disp.Printf("%s", z.previews()[count])

		k, err := z.keys.TryKey(ctx)
		if err != nil {
			return false, err
		}

		select {
		case <-rotate.C:
			count = (count + 1) % 3
		default:
		}

		switch k {
		case Custom:
			return true, nil
		case Default:
			sure, err := z.confirmDefaults(ctx)
			if err != nil {
				return false, err
			}
			return !sure, nil
		case keypad.None:
			if err := task.Sleep(ctx, z.poll); err != nil {
				return false, err
			}
		}
	}
}

func (z *Wizard) confirmDefaults(ctx context.Context) (bool, error) {
	if err := z.keys.WaitRelease(ctx); err != nil {
		return false, err
	}
	z.disp.Cls()
	z.disp.Locate(0, 0)
	z.disp.Printf("Sure? A:Yes B:No")
	fmt.Fprint(z.w, "Making sure the user wants to keep the default\n\r")

	rotate := time.NewTicker(z.confirm)
	defer rotate.Stop()

	msgs := z.previews()
	i := 0
	var choice keypad.Key
	for choice != Yes && choice != No {
		select {
		case <-rotate.C:
			z.disp.Locate(0, 1)
			z.disp.Printf("%s", msgs[i])
			i = (i + 1) % len(msgs)
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		if choice = z.keys.Poll(); choice != Yes && choice != No {
			if err := task.Sleep(ctx, z.poll); err != nil {
				return false, err
			}
		}
	}

	z.disp.Cls()
	z.disp.Locate(0, 0)
	if choice == Yes {
		z.disp.Printf("Using default   ")
	} else {
		z.disp.Printf("Changing Default")
	}
	if err := z.keys.WaitRelease(ctx); err != nil {
		return false, err
	}
	not := "not "
	if choice == Yes {
		not = ""
	}
	fmt.Fprintf(z.w, "Default values is %schoosen\n\r", not)
	z.disp.Cls()
	return choice == Yes, task.Sleep(ctx, doneHold)
}

func (z *Wizard) edit(ctx context.Context, fe fieldEdit) error {
	before := z.store.Get(fe.field)

	z.disp.Cls()
	z.disp.Locate(0, 0)
	z.disp.Printf(fe.header, before)
	if strings.Contains(fe.prompt, "%") {
		fmt.Fprintf(z.w, fe.prompt, before)
	} else {
		fmt.Fprint(z.w, fe.prompt)
	}
	log.Printf("wizard: editing %s", fe.field)

	v, err := z.ed.Edit(ctx, fe.col, 1, fe.size)
	if err != nil {
		return err
	}
	z.store.Set(fe.field, v)

	z.disp.Cls()
	z.disp.Locate(0, 0)
	z.disp.Printf("      DONE!      ")
	if err := z.keys.WaitRelease(ctx); err != nil {
		return err
	}
	fmt.Fprintf(z.w, fe.done, v)
	log.Printf("wizard: %s %d -> %d", fe.field, before, v)
	return task.Sleep(ctx, doneHold)
}
