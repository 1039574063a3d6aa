//go:build linux

package board

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/config"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/sample"
)

const consumer = "thermoctl"

// buttonDebounce filters contact bounce on the emergency button.
const buttonDebounce = 20 * time.Millisecond

var _ Board = (*Linux)(nil)

// Linux is a board wired to a GPIO character device, a sysfs PWM channel
// and an IIO ADC channel.
type Linux struct {
	chip    *gpiod.Chip
	matrix  *gpioMatrix
	lights  *gpioLights
	lcdBus  *gpiod.Lines
	lcd     *LCD
	pwm     *PWM
	sensor  *IIO
	button  *gpiod.Line
	closers []func() error

	mu       sync.RWMutex
	onButton []func()
}

// OpenLinux requests every line named in cfg. Lines already requested are
// released if a later request fails.
func OpenLinux(cfg config.BoardConfig) (b *Linux, err error) {
	chip, err := gpiod.NewChip(cfg.Chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Chip, err)
	}
	b = &Linux{chip: chip}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	if b.matrix, err = newGPIOMatrix(chip, cfg.Rows, cfg.Columns); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.matrix.Close)

	if b.lights, err = newGPIOLights(chip, cfg.Green, cfg.Yellow, cfg.Red); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.lights.Close)

	lcdPins := append([]int{cfg.LCD.RS, cfg.LCD.E}, cfg.LCD.Data...)
	if b.lcdBus, err = chip.RequestLines(lcdPins, gpiod.AsOutput(0, 0, 0, 0, 0, 0)); err != nil {
		return nil, fmt.Errorf("request lcd lines: %w", err)
	}
	b.closers = append(b.closers, b.lcdBus.Close)
	if b.lcd, err = NewLCD(b.lcdBus); err != nil {
		return nil, err
	}

	if b.pwm, err = OpenPWM(DefaultPWMRoot, cfg.PWM.Chip, cfg.PWM.Channel, cfg.PWM.Period); err != nil {
		return nil, err
	}
	b.closers = append(b.closers, b.pwm.Close)

	b.sensor = NewIIO(cfg.Sensor.Path, cfg.Sensor.FullScale)

	b.button, err = chip.RequestLine(cfg.Button,
		gpiod.AsInput,
		gpiod.WithPullDown,
		gpiod.WithRisingEdge,
		gpiod.WithDebounce(buttonDebounce),
		gpiod.WithEventHandler(b.buttonEvent))
	if err != nil {
		return nil, fmt.Errorf("request button line %d: %w", cfg.Button, err)
	}
	b.closers = append(b.closers, b.button.Close)

	log.Printf("board: %s ready", cfg.Chip)
	return b, nil
}

func (b *Linux) Matrix() keypad.Matrix        { return b.matrix }
func (b *Linux) Display() display.Display     { return b.lcd }
func (b *Linux) Sensor() sample.Sensor        { return b.sensor }
func (b *Linux) Actuator() actuation.Actuator { return b.pwm }
func (b *Linux) Lights() actuation.Lights     { return b.lights }

func (b *Linux) OnButton(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onButton = append(b.onButton, fn)
}

func (b *Linux) buttonEvent(evt gpiod.LineEvent) {
	if evt.Type != gpiod.LineEventRisingEdge {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onButton {
		fn()
	}
}

// Close releases every line in reverse order of request.
func (b *Linux) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	if b.chip != nil {
		errs = append(errs, b.chip.Close())
		b.chip = nil
	}
	return errors.Join(errs...)
}

// gpioMatrix drives keypad rows as outputs and reads pulled-up columns.
type gpioMatrix struct {
	rows *gpiod.Lines
	cols *gpiod.Lines

	mu    sync.Mutex
	level []int
	read  []int
}

func newGPIOMatrix(chip *gpiod.Chip, rows, cols []int) (*gpioMatrix, error) {
	if len(rows) != keypad.Rows || len(cols) != keypad.Columns {
		return nil, fmt.Errorf("keypad needs %d rows and %d columns", keypad.Rows, keypad.Columns)
	}
	high := []int{1, 1, 1, 1}
	r, err := chip.RequestLines(rows, gpiod.AsOutput(high...))
	if err != nil {
		return nil, fmt.Errorf("request keypad rows: %w", err)
	}
	c, err := chip.RequestLines(cols, gpiod.AsInput, gpiod.WithPullUp)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request keypad columns: %w", err)
	}
	return &gpioMatrix{rows: r, cols: c, level: high, read: make([]int, keypad.Columns)}, nil
}

func (m *gpioMatrix) SetRow(row int, level bool) {
	if row < 0 || row >= keypad.Rows {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level[row] = 0
	if level {
		m.level[row] = 1
	}
	if err := m.rows.SetValues(m.level); err != nil {
		log.Printf("keypad: set rows: %v", err)
	}
}

func (m *gpioMatrix) ReadColumn(col int) bool {
	if col < 0 || col >= keypad.Columns {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cols.Values(m.read); err != nil {
		log.Printf("keypad: read columns: %v", err)
		return true
	}
	return m.read[col] != 0
}

func (m *gpioMatrix) Close() error {
	return errors.Join(m.rows.Close(), m.cols.Close())
}

// gpioLights drives the green, yellow and red indicators.
type gpioLights struct {
	lines *gpiod.Lines
}

func newGPIOLights(chip *gpiod.Chip, green, yellow, red int) (*gpioLights, error) {
	l, err := chip.RequestLines([]int{green, yellow, red}, gpiod.AsOutput(0, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("request indicator lines: %w", err)
	}
	return &gpioLights{lines: l}, nil
}

func (g *gpioLights) SetIndicators(ind actuation.Indicators) error {
	return g.lines.SetValues([]int{bit(ind.Green), bit(ind.Yellow), bit(ind.Red)})
}

func (g *gpioLights) Close() error {
	return errors.Join(g.SetIndicators(actuation.Indicators{}), g.lines.Close())
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
