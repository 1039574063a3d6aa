//go:build linux

// Command firmware runs the controller on a Linux board: keypad, LCD and
// indicators on GPIO, heater on sysfs PWM, sensor on an IIO ADC channel and
// the remote console on a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/itohio/thermoctl/pkg/board"
	"github.com/itohio/thermoctl/pkg/config"
	"github.com/itohio/thermoctl/pkg/serialport"
	"github.com/itohio/thermoctl/pkg/telemetry"
	"github.com/itohio/thermoctl/pkg/unit"
)

func main() {
	var (
		configFlag = flag.String("config", "thermoctl.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Serial port override (\"-\" for this terminal)")
		dumpFlag   = flag.Bool("dump-config", false, "Write the effective configuration to -config and exit")
		listFlag   = flag.Bool("list-ports", false, "List serial ports and exit")
	)
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	if *listFlag {
		ports, err := serialport.Ports()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Description)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *dumpFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Failed to save configuration: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := board.OpenLinux(cfg.Board)
	if err != nil {
		return err
	}
	defer b.Close()

	var link *serialport.Link
	if cfg.UseStdio() {
		link = serialport.Stdio()
	} else {
		link, err = serialport.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
	}
	defer link.Close()

	pub, err := telemetry.Open(cfg.Telemetry)
	if err != nil {
		// The controller runs without the mirror.
		log.Printf("Telemetry disabled: %v", err)
		pub = telemetry.Nop{}
	}
	defer pub.Close()

	log.Printf("thermoctl running, console on %q", cfg.Serial.Port)
	err = unit.New(cfg.Timing, b, link, pub).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
