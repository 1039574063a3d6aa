package unit

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

	"github.com/itohio/thermoctl/pkg/access"
	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/board"
	"github.com/itohio/thermoctl/pkg/config"
	"github.com/itohio/thermoctl/pkg/emergency"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/settings"
)

type conn struct {
	in chan byte

	mu  sync.Mutex
	out bytes.Buffer
}

func newConn() *conn { return &conn{in: make(chan byte, 64)} }

func (c *conn) Type(s string) {
	for i := 0; i < len(s); i++ {
		c.in <- s[i]
	}
}

func (c *conn) Getc(ctx context.Context) (byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *conn) Readable() bool { return len(c.in) > 0 }

func (c *conn) Putc(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}

func (c *conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *conn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func fastTiming() config.TimingConfig {
	return config.TimingConfig{
		Sample:       2 * time.Millisecond,
		Display:      5 * time.Millisecond,
		Actuation:    2 * time.Millisecond,
		Status:       5 * time.Millisecond,
		Preview:      time.Hour,
		Confirm:      time.Hour,
		Flash:        5 * time.Millisecond,
		Grace:        5 * time.Millisecond,
		KeyPoll:      time.Millisecond,
		ReadablePoll: time.Millisecond,
	}
}

type fixture struct {
	sim   *board.Sim
	conn  *conn
	keys  *keypad.Script
	store *settings.Store
	unit  *Unit
}

func newFixture(typed string) *fixture {
	f := &fixture{
		sim:   board.NewSim(board.Thermal{Ambient: 22, Gain: 110, Tau: time.Hour}),
		conn:  newConn(),
		keys:  keypad.NewScript(),
		store: settings.NewStore(),
	}
	f.keys.TypeString(typed)
	f.unit = New(fastTiming(), f.sim, f.conn, nil, WithKeys(f.keys), WithStore(f.store))
	return f
}

// run starts the unit and returns a stop func that cancels it and returns
// the Run error.
func (f *fixture) run(t *testing.T) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.unit.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("unit did not stop")
			return nil
		}
	}
}

func TestUnit_BootsAndControls(t *testing.T) {
	f := newFixture("1313A" + "DA")
	stop := f.run(t)

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.sim.Grid().Line(0), "T:  22C TA:  22C")
	}, 2*time.Second, time.Millisecond)

	// 22C sits between min and mid.
	require.Eventually(t, func() bool {
		duty, ind := f.sim.Outputs()
		return duty == 0.3 && ind == actuation.Indicators{Green: true, Yellow: true}
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "Stable 22.")
	}, time.Second, time.Millisecond)

	// Heating past max moves the outputs.
	f.sim.SetTemperature(150)
	require.Eventually(t, func() bool {
		duty, ind := f.sim.Outputs()
		return duty == 1 && ind == actuation.Indicators{Red: true}
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "Heated 100.000000C")
	}, time.Second, time.Millisecond)

	assert.NoError(t, stop())
	duty, ind := f.sim.Outputs()
	assert.Zero(t, duty, "outputs off after shutdown")
	assert.Equal(t, actuation.Indicators{}, ind)

	out := f.conn.String()
	assert.Contains(t, out, "The system has been unlocked.")
}

func TestUnit_EmergencyButton(t *testing.T) {
	f := newFixture("1313A" + "DA")
	f.store.Set(settings.Timeout, 0)
	stop := f.run(t)
	defer func() { assert.NoError(t, stop()) }()

	require.Eventually(t, func() bool {
		duty, _ := f.sim.Outputs()
		return duty == 0.3
	}, 2*time.Second, time.Millisecond)

	f.sim.PressButton()
	require.Eventually(t, f.unit.Emergency().Active, time.Second, time.Millisecond)
	duty, ind := f.sim.Outputs()
	assert.Zero(t, duty)
	assert.Equal(t, actuation.Indicators{}, ind)

	// Control resumes once the override ends.
	require.Eventually(t, func() bool {
		duty, _ := f.sim.Outputs()
		return !f.unit.Emergency().Active() && duty == 0.3
	}, 2*time.Second, time.Millisecond)
}

func TestUnit_ButtonIgnoredDuringBoot(t *testing.T) {
	f := newFixture("1313A")
	stop := f.run(t)
	defer func() { assert.NoError(t, stop()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "The system has been unlocked.")
	}, time.Second, time.Millisecond)

	// The wizard is waiting for its choice.
	f.sim.PressButton()
	f.keys.TypeString("DA")

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.sim.Grid().Line(0), "T:")
	}, 2*time.Second, time.Millisecond)
	assert.Never(t, f.unit.Emergency().Active, 50*time.Millisecond, time.Millisecond)
	assert.Equal(t, emergency.Idle, f.unit.Emergency().State())

	// Once running, the button works again.
	f.sim.PressButton()
	require.Eventually(t, f.unit.Emergency().Active, time.Second, time.Millisecond)
}

func TestUnit_SerialEmergencyAndRemote(t *testing.T) {
	f := newFixture("1313A" + "DA")
	f.store.Set(settings.Timeout, 0)
	stop := f.run(t)
	defer func() { assert.NoError(t, stop()) }()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.sim.Grid().Line(0), "T:")
	}, 2*time.Second, time.Millisecond)

	f.conn.Type("e")
	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "Entered keyboard input: e\n\r")
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !f.unit.Emergency().Active() }, time.Second, time.Millisecond)

	f.conn.Type("R")
	require.Eventually(t, f.unit.Remote().Active, time.Second, time.Millisecond)
	f.conn.Type("2" + "15\n" + "50\n" + "100\n" + "4")
	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "Terminating\n\r")
	}, time.Second, time.Millisecond)
	assert.Equal(t, 15, f.store.Thresholds().Min)
}

func TestUnit_CustomSetup(t *testing.T) {
	f := newFixture("1313A" + "C" + "20A" + "30A" + "40A" + "2A" + "7777A")
	stop := f.run(t)
	defer func() { assert.NoError(t, stop()) }()

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.sim.Grid().Line(0), "T:")
	}, 2*time.Second, time.Millisecond)

	snap := f.store.Snapshot()
	assert.Equal(t, settings.Thresholds{Min: 20, Mid: 30, Max: 40}, snap.Thresholds)
	assert.Equal(t, 2, snap.TimeoutSeconds)
	assert.Equal(t, 7777, snap.Password)

	// 22C with min=20 and mid=30.
	require.Eventually(t, func() bool {
		duty, _ := f.sim.Outputs()
		return duty == 0.3
	}, time.Second, time.Millisecond)
}

func TestUnit_LockedBootNeverStartsTasks(t *testing.T) {
	f := newFixture("1A" + "2A" + "3A")
	stop := f.run(t)

	require.Eventually(t, func() bool {
		return strings.Contains(f.conn.String(), "locked due to many failed attempts")
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "     LOCKED     ", f.sim.Grid().Line(0))
	duty, _ := f.sim.Outputs()
	assert.Zero(t, duty)

	err := stop()
	assert.True(t, errors.Is(err, access.ErrLocked))
}
