package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Timing    TimingConfig    `yaml:"timing"`
	Board     BoardConfig     `yaml:"board"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sim       SimConfig       `yaml:"sim"`
}

// SerialConfig contains serial port configuration. An empty or "-" port
// means the process terminal is used as the console link.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// TimingConfig contains task cadences and UI delays.
type TimingConfig struct {
	Sample       time.Duration `yaml:"sample"`        // Sensor sampling interval
	Display      time.Duration `yaml:"display"`       // Display refresh interval
	Actuation    time.Duration `yaml:"actuation"`     // Policy evaluation interval
	Status       time.Duration `yaml:"status"`        // Serial status report interval
	Preview      time.Duration `yaml:"preview"`       // Wizard preview rotation
	Confirm      time.Duration `yaml:"confirm"`       // Wizard confirmation rotation
	Flash        time.Duration `yaml:"flash"`         // Emergency frame toggle
	Grace        time.Duration `yaml:"grace"`         // Emergency hold after countdown
	Unlock       time.Duration `yaml:"unlock"`        // UNLOCKED banner hold
	KeySettle    time.Duration `yaml:"key_settle"`    // Row drive settle delay
	KeyPoll      time.Duration `yaml:"key_poll"`      // Keypad poll interval
	ReadablePoll time.Duration `yaml:"readable_poll"` // Serial readable poll interval
	KeyHold      time.Duration `yaml:"key_hold"`      // Simulated key hold (simulator only)
}

// BoardConfig contains Linux board wiring.
type BoardConfig struct {
	Chip    string       `yaml:"chip"`
	Rows    []int        `yaml:"rows"`
	Columns []int        `yaml:"columns"`
	Green   int          `yaml:"green"`
	Yellow  int          `yaml:"yellow"`
	Red     int          `yaml:"red"`
	Button  int          `yaml:"button"`
	LCD     LCDConfig    `yaml:"lcd"`
	PWM     PWMConfig    `yaml:"pwm"`
	Sensor  SensorConfig `yaml:"sensor"`
}

// LCDConfig contains HD44780 4-bit bus offsets.
type LCDConfig struct {
	RS   int   `yaml:"rs"`
	E    int   `yaml:"e"`
	Data []int `yaml:"data"` // D4..D7
}

// PWMConfig selects a sysfs PWM channel.
type PWMConfig struct {
	Chip    int           `yaml:"chip"`
	Channel int           `yaml:"channel"`
	Period  time.Duration `yaml:"period"`
}

// SensorConfig selects an IIO voltage channel.
type SensorConfig struct {
	Path      string  `yaml:"path"`       // sysfs raw value file
	FullScale float64 `yaml:"full_scale"` // raw value mapped to 1.0
}

// TelemetryConfig contains the optional MQTT status mirror. An empty broker
// disables it.
type TelemetryConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// SimConfig contains the simulated plant used by the desktop simulator.
type SimConfig struct {
	Ambient float32       `yaml:"ambient"` // °C with the heater off
	Gain    float32       `yaml:"gain"`    // °C added at full duty
	Tau     time.Duration `yaml:"tau"`     // plant time constant
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 9600,
		},
		Timing: TimingConfig{
			Sample:       500 * time.Millisecond,
			Display:      3 * time.Second,
			Actuation:    3 * time.Second,
			Status:       1500 * time.Millisecond,
			Preview:      1500 * time.Millisecond,
			Confirm:      2 * time.Second,
			Flash:        200 * time.Millisecond,
			Grace:        time.Second,
			Unlock:       time.Second,
			KeySettle:    time.Millisecond,
			KeyPoll:      5 * time.Millisecond,
			ReadablePoll: 10 * time.Millisecond,
			KeyHold:      80 * time.Millisecond,
		},
		Board: BoardConfig{
			Chip:    "gpiochip0",
			Rows:    []int{5, 6, 13, 19},
			Columns: []int{12, 16, 20, 21},
			Green:   17,
			Yellow:  27,
			Red:     22,
			Button:  26,
			LCD: LCDConfig{
				RS:   23,
				E:    24,
				Data: []int{25, 8, 7, 1},
			},
			PWM: PWMConfig{
				Chip:    0,
				Channel: 0,
				Period:  time.Millisecond,
			},
			Sensor: SensorConfig{
				Path:      "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
				FullScale: 4095,
			},
		},
		Telemetry: TelemetryConfig{
			TopicPrefix: "thermoctl",
		},
		Sim: SimConfig{
			Ambient: 22,
			Gain:    110,
			Tau:     20 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UseStdio reports whether the console link is the process terminal.
func (c *Config) UseStdio() bool {
	return c.Serial.Port == "" || c.Serial.Port == "-"
}

func durationOr(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	t, dt := &c.Timing, def.Timing
	durationOr(&t.Sample, dt.Sample)
	durationOr(&t.Display, dt.Display)
	durationOr(&t.Actuation, dt.Actuation)
	durationOr(&t.Status, dt.Status)
	durationOr(&t.Preview, dt.Preview)
	durationOr(&t.Confirm, dt.Confirm)
	durationOr(&t.Flash, dt.Flash)
	durationOr(&t.Grace, dt.Grace)
	durationOr(&t.Unlock, dt.Unlock)
	durationOr(&t.KeySettle, dt.KeySettle)
	durationOr(&t.KeyPoll, dt.KeyPoll)
	durationOr(&t.ReadablePoll, dt.ReadablePoll)
	durationOr(&t.KeyHold, dt.KeyHold)

	if c.Board.Chip == "" {
		c.Board.Chip = def.Board.Chip
	}
	if len(c.Board.Rows) != 4 {
		c.Board.Rows = def.Board.Rows
	}
	if len(c.Board.Columns) != 4 {
		c.Board.Columns = def.Board.Columns
	}
	if len(c.Board.LCD.Data) != 4 {
		c.Board.LCD.Data = def.Board.LCD.Data
	}
	durationOr(&c.Board.PWM.Period, def.Board.PWM.Period)
	if c.Board.Sensor.Path == "" {
		c.Board.Sensor.Path = def.Board.Sensor.Path
	}
	if c.Board.Sensor.FullScale <= 0 {
		c.Board.Sensor.FullScale = def.Board.Sensor.FullScale
	}

	if c.Telemetry.TopicPrefix == "" {
		c.Telemetry.TopicPrefix = def.Telemetry.TopicPrefix
	}

	if c.Sim.Gain <= 0 {
		c.Sim.Gain = def.Sim.Gain
	}
	durationOr(&c.Sim.Tau, def.Sim.Tau)
}
