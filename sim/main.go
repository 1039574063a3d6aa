// Command sim runs the controller against a simulated board with a Fyne
// front panel: LCD, keypad, indicators, emergency button and a trend plot.
// The remote console is this terminal or a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/lmittmann/tint"

	"github.com/itohio/thermoctl/pkg/actuation"
	"github.com/itohio/thermoctl/pkg/board"
	"github.com/itohio/thermoctl/pkg/config"
	"github.com/itohio/thermoctl/pkg/serialport"
	"github.com/itohio/thermoctl/pkg/telemetry"
	"github.com/itohio/thermoctl/pkg/unit"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (\"-\" for this terminal)")
		configFlag = flag.String("config", "thermoctl.yaml", "Configuration file path")
	)
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	var link *serialport.Link
	if cfg.UseStdio() {
		link = serialport.Stdio()
	} else if link, err = serialport.Open(cfg.Serial.Port, cfg.Serial.Baud); err != nil {
		log.Fatalf("Failed to open console: %v", err)
	}
	defer link.Close()

	pub, err := telemetry.Open(cfg.Telemetry)
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
		pub = telemetry.Nop{}
	}
	defer pub.Close()

	sim := board.NewSim(board.Thermal{Ambient: cfg.Sim.Ambient, Gain: cfg.Sim.Gain, Tau: cfg.Sim.Tau})
	u := unit.New(cfg.Timing, sim, link, pub)

	application := app.NewWithID("com.itohio.thermoctl")
	window := application.NewWindow("Temperature Controller")
	window.Resize(fyne.NewSize(900, 560))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		sim:        sim,
		unit:       u,
		window:     window,
	}
	window.SetContent(newPanel(state))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := u.Run(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("Controller stopped: %v", err)
		fyne.Do(func() { dialog.ShowError(err, window) })
	}()

	window.SetOnClosed(func() {
		cancel()
		<-done
	})
	window.ShowAndRun()
}

// appState holds the simulator state shared by the panel and dialogs.
type appState struct {
	cfg        *config.Config
	configPath string
	sim        *board.Sim
	unit       *unit.Unit
	window     fyne.Window

	leds *ledRow
}

// outputsChanged mirrors heater duty and indicators on the panel.
func (s *appState) outputsChanged(duty float32, ind actuation.Indicators) {
	fyne.Do(func() {
		s.leds.set(duty, ind)
	})
}
