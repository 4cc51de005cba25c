//go:build linux

// Standalone Linux runner: drives motors directly through sysfs GPIO from
// a JSON config file, no serial link involved. Useful on single-board
// computers where the coils hang off the board's own header.
package main

import (
	"flag"
	"fmt"
	"os"

	"coilstep/config"
	"coilstep/core"
)

var (
	configPath = flag.String("config", "", "Motor config file (JSON); defaults to a single four-wire motor")
	motorName  = flag.String("motor", "motor0", "Motor to drive")
	steps      = flag.Int("steps", 0, "Steps to move, negative reverses")
	rpm        = flag.Uint("rpm", 0, "Override configured speed")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	motorCfg, err := cfg.MotorConfigFor(*motorName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *rpm != 0 {
		motorCfg.RPM = uint32(*rpm)
	}

	gpio := NewSysfsGPIO()
	defer gpio.Close()

	motor, err := core.NewStepper(gpio, MonotonicClock{}, motorCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *steps == 0 {
		fmt.Println("Nothing to do (use -steps)")
		return
	}

	fmt.Printf("Moving %s: %d steps at %d RPM (%s, %d steps/rev)\n",
		*motorName, *steps, motorCfg.RPM, motorCfg.Wiring, motorCfg.StepsPerRev)

	if err := motor.Move(*steps); err != nil {
		fmt.Fprintf(os.Stderr, "Error: move failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done: position %d, phase %d\n", motor.Position(), motor.Phase())
}
