package board

import (
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/sample"
)

// Thermal is a first-order plant: the temperature approaches
// Ambient + duty*Gain with time constant Tau.
type Thermal struct {
	Ambient float32       // °C
	Gain    float32       // °C at full duty
	Tau     time.Duration // time constant
}

// DefaultThermal reaches every bucket of the default thresholds.
var DefaultThermal = Thermal{Ambient: 22, Gain: 110, Tau: 20 * time.Second}

var _ Board = (*Sim)(nil)

// Sim is an in-memory board with a thermal model behind the sensor.
type Sim struct {
	keys *keypad.Mock
	lcd  *display.Grid

	mu      sync.Mutex
	thermal Thermal
	temp    float32
	duty    float32
	ind     actuation.Indicators
	last    time.Time
	now     func() time.Time

	onButton  []func()
	onOutputs func(duty float32, ind actuation.Indicators)
}

// NewSim creates a simulated board resting at ambient temperature.
func NewSim(thermal Thermal) *Sim {
	if thermal.Tau <= 0 {
		thermal.Tau = DefaultThermal.Tau
	}
	return &Sim{
		keys:    keypad.NewMock(),
		lcd:     display.NewGrid(),
		thermal: thermal,
		temp:    thermal.Ambient,
		last:    time.Now(),
		now:     time.Now,
	}
}

func (s *Sim) Matrix() keypad.Matrix        { return s.keys }
func (s *Sim) Display() display.Display     { return s.lcd }
func (s *Sim) Sensor() sample.Sensor        { return s }
func (s *Sim) Actuator() actuation.Actuator { return s }
func (s *Sim) Lights() actuation.Lights     { return s }

// Keys returns the simulated keypad.
func (s *Sim) Keys() *keypad.Mock {
	return s.keys
}

// Grid returns the simulated character display.
func (s *Sim) Grid() *display.Grid {
	return s.lcd
}

func (s *Sim) OnButton(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onButton = append(s.onButton, fn)
}

// PressButton fires the emergency button handlers.
func (s *Sim) PressButton() {
	s.mu.Lock()
	handlers := append([]func(){}, s.onButton...)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

// OnOutputs registers a callback for every duty or indicator change.
func (s *Sim) OnOutputs(fn func(duty float32, ind actuation.Indicators)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOutputs = fn
}

// SetAmbient moves the ambient temperature of the plant.
func (s *Sim) SetAmbient(c float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.thermal.Ambient = c
}

// SetThermal replaces the plant parameters from now on.
func (s *Sim) SetThermal(t Thermal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	if t.Tau <= 0 {
		t.Tau = s.thermal.Tau
	}
	s.thermal = t
}

// Thermal returns the plant parameters.
func (s *Sim) Thermal() Thermal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thermal
}

// SetTemperature forces the current plant temperature.
func (s *Sim) SetTemperature(c float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.temp = c
}

// Temperature returns the plant temperature in °C.
func (s *Sim) Temperature() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.temp
}

// Outputs returns the last duty and indicators written.
func (s *Sim) Outputs() (float32, actuation.Indicators) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty, s.ind
}

// Read returns the plant temperature normalized to [0, 1].
func (s *Sim) Read() (float32, error) {
	t := s.Temperature()
	return math32.Max(0, math32.Min(1, t/sample.Scale)), nil
}

func (s *Sim) SetDuty(duty float32) error {
	s.mu.Lock()
	s.advance()
	s.duty = duty
	cb, ind := s.onOutputs, s.ind
	s.mu.Unlock()
	if cb != nil {
		cb(duty, ind)
	}
	return nil
}

func (s *Sim) SetIndicators(ind actuation.Indicators) error {
	s.mu.Lock()
	s.ind = ind
	cb, duty := s.onOutputs, s.duty
	s.mu.Unlock()
	if cb != nil {
		cb(duty, ind)
	}
	return nil
}

func (s *Sim) Close() error {
	return nil
}

// advance integrates the plant up to now. Callers hold mu.
func (s *Sim) advance() {
	now := s.now()
	dt := float32(now.Sub(s.last).Seconds())
	s.last = now
	if dt <= 0 {
		return
	}
	target := s.thermal.Ambient + s.duty*s.thermal.Gain
	k := 1 - math32.Exp(-dt/float32(s.thermal.Tau.Seconds()))
	s.temp += (target - s.temp) * k
}
