// Package board binds the controller to its peripherals: a simulated board
// for the desktop simulator and tests, and a Linux board on GPIO character
// devices, sysfs PWM and an IIO ADC channel.
package board

import (
	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/keypad"
	"github.com/itohio/thermoctl/pkg/sample"
)

// Board is the full peripheral set of one unit.
type Board interface {
	Matrix() keypad.Matrix
	Display() display.Display
	Sensor() sample.Sensor
	Actuator() actuation.Actuator
	Lights() actuation.Lights
	// OnButton registers fn for the emergency push-button. fn runs in the
	// edge handler and must return at once.
	OnButton(fn func())
	Close() error
}
