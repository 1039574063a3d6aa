package board

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chewxy/math32"
)

// DefaultPWMRoot is where the kernel exposes PWM chips.
const DefaultPWMRoot = "/sys/class/pwm"

// PWM is a sysfs PWM channel used as the proportional actuator.
type PWM struct {
	dir    string
	period time.Duration
}

// OpenPWM exports channel of pwmchip<chip> under root if needed, sets the
// period, zeroes the duty and enables the output.
func OpenPWM(root string, chip, channel int, period time.Duration) (*PWM, error) {
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeAttr(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm%d: %w", channel, err)
		}
	}

	p := &PWM{dir: dir, period: period}
	if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
		return nil, err
	}
	if err := writeAttr(filepath.Join(dir, "period"), strconv.FormatInt(period.Nanoseconds(), 10)); err != nil {
		return nil, err
	}
	if err := writeAttr(filepath.Join(dir, "enable"), "1"); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDuty sets the duty cycle as a fraction of the period.
func (p *PWM) SetDuty(duty float32) error {
	duty = math32.Max(0, math32.Min(1, duty))
	ns := int64(duty * float32(p.period.Nanoseconds()))
	return writeAttr(filepath.Join(p.dir, "duty_cycle"), strconv.FormatInt(ns, 10))
}

// Close zeroes and disables the channel.
func (p *PWM) Close() error {
	if err := p.SetDuty(0); err != nil {
		return err
	}
	return writeAttr(filepath.Join(p.dir, "enable"), "0")
}

// IIO reads a raw ADC channel from sysfs and normalizes it by full scale.
type IIO struct {
	path      string
	fullScale float32
}

// NewIIO creates an IIO sensor for the raw value file at path.
func NewIIO(path string, fullScale float64) *IIO {
	return &IIO{path: path, fullScale: float32(fullScale)}
}

// Read returns the raw value divided by full scale, clamped to [0, 1].
func (s *IIO) Read() (float32, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return math32.Max(0, math32.Min(1, float32(raw)/s.fullScale)), nil
}

func writeAttr(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
