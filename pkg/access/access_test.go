package access

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/editor"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/settings"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type rig struct {
	store  *settings.Store
	keys   *keypad.Script
	grid   *display.Grid
	serial *syncBuffer
	ed     *editor.LineEditor
}

func newRig(typed string) *rig {
	r := &rig{
		store:  settings.NewStore(),
		keys:   keypad.NewScript(),
		grid:   display.NewGrid(),
		serial: &syncBuffer{},
	}
	r.keys.TypeString(typed)
	r.ed = editor.New(r.keys, r.grid)
	return r
}

func (r *rig) gate() *Gate {
	return NewGate(r.store, r.ed, r.grid, r.serial, 0)
}

func (r *rig) wizard(preview, confirm time.Duration) *Wizard {
	return NewWizard(r.store, r.keys, r.ed, r.grid, r.serial, preview, confirm)
}

func TestGate_CorrectFirstTry(t *testing.T) {
	r := newRig("1313A")
	require.NoError(t, r.gate().Run(context.Background()))

	assert.Equal(t, "    UNLOCKED    ", r.grid.Line(0))
	assert.Equal(t, "Password is correct! Entered system.\n\rThe system has been unlocked.\n\r", r.serial.String())
	assert.Zero(t, r.keys.Pending())
}

func TestGate_SucceedsOnLastAttempt(t *testing.T) {
	r := newRig("1A2D1313A")
	require.NoError(t, r.gate().Run(context.Background()))

	out := r.serial.String()
	assert.Equal(t, 2, strings.Count(out, "Entered password is wrong!\n\r"))
	assert.Contains(t, out, "The system has been unlocked.")
}

func TestGate_WrongAttemptsShowRemaining(t *testing.T) {
	r := newRig("99A")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.gate().Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.grid.Line(0) == "Wrong:2 attempts"
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestGate_LocksAfterThreeFailures(t *testing.T) {
	r := newRig("1A2A3A1313A")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.gate().Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(r.serial.String(), "The system has been locked due to many failed attempts.")
	}, time.Second, time.Millisecond)

	// The lock holds: the correct password typed afterwards is never read.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 5, r.keys.Pending())
	assert.Equal(t, "     LOCKED     ", r.grid.Line(0))
	assert.NotContains(t, r.serial.String(), "unlocked")
	select {
	case err := <-done:
		t.Fatalf("gate returned while locked: %v", err)
	default:
	}

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, ErrLocked))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWizard_CustomFlow(t *testing.T) {
	r := newRig("1#C" + "20A" + "30A" + "40D" + "5A" + "4242A")
	custom, err := r.wizard(time.Hour, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, custom)

	snap := r.store.Snapshot()
	assert.Equal(t, settings.Thresholds{Min: 20, Mid: 30, Max: 40}, snap.Thresholds)
	assert.Equal(t, 5, snap.TimeoutSeconds)
	assert.Equal(t, 4242, snap.Password)

	out := r.serial.String()
	for _, want := range []string{
		"Prompting the user to change temperature minimum.\n\r",
		"Temperature Minimum changed to: 20\n\r",
		"Temperature Medium changed to: 30\n\r",
		"Temperature Maximum changed to: 40\n\r",
		"Prompting the user to change the emergency timer value from: 3.\n\r",
		"Emergency timer value changed to: 5\n\r",
		"Prompting the user to change the password from: 1313.\n\r",
		"Password changed to: 4242\n\r",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, "      DONE!     ", r.grid.Line(0))
}

func TestWizard_ConfirmDefaults(t *testing.T) {
	r := newRig("D5A")
	custom, err := r.wizard(time.Hour, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, custom)

	assert.Equal(t, settings.NewStore().Snapshot(), r.store.Snapshot())
	assert.Equal(t, "Making sure the user wants to keep the default\n\rDefault values is choosen\n\r", r.serial.String())
	assert.Zero(t, r.keys.Pending())
}

func TestWizard_RejectDefaultsRunsCustomFlow(t *testing.T) {
	r := newRig("DB" + "1A" + "2A" + "3A" + "4A" + "5A")
	custom, err := r.wizard(time.Hour, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, custom)

	assert.Contains(t, r.serial.String(), "Default values is not choosen\n\r")
	assert.Equal(t, settings.Thresholds{Min: 1, Mid: 2, Max: 3}, r.store.Thresholds())
	assert.Equal(t, 4, r.store.TimeoutSeconds())
	assert.Equal(t, 5, r.store.Password())
}

func TestWizard_PreviewRotates(t *testing.T) {
	r := newRig("")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := r.wizard(10*time.Millisecond, time.Hour).Run(ctx)
		done <- err
	}()

	seen := map[string]bool{}
	require.Eventually(t, func() bool {
		seen[r.grid.Line(1)] = true
		return seen["TempLow =  10C  "] && seen["TempMid =  50C  "] && seen["TempHigh = 100C "]
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "Custom/Default? ", r.grid.Line(0))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
