// coilstep-host is an interactive console for a coilstep controller: it
// connects over serial, retrieves the command dictionary and exposes the
// stepper command set on stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"coilstep/config"
	"coilstep/core"
	"coilstep/host/mcu"
	"coilstep/host/serial"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud   = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
)

func main() {
	flag.Parse()

	client := mcu.NewClient()

	fmt.Printf("Connecting to controller on %s...\n", *device)
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	if err := client.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.Identify(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	dict := client.Dictionary()
	fmt.Printf("Connected: %s (%d commands, %d responses)\n",
		dict.Version, len(dict.Commands), len(dict.Responses))

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type 'help' for available commands, 'quit' to exit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if err := runCommand(client, parts); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

var errQuit = fmt.Errorf("quit")

func runCommand(client *mcu.Client, parts []string) error {
	switch parts[0] {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		printHelp()
		return nil

	case "dict":
		dict := client.Dictionary()
		fmt.Printf("Version: %s\n", dict.Version)
		fmt.Println("Commands:")
		for entry, id := range dict.Commands {
			fmt.Printf("  [%d] %s\n", id, entry)
		}
		fmt.Println("Responses:")
		for entry, id := range dict.Responses {
			fmt.Printf("  [%d] %s\n", id, entry)
		}
		return nil

	case "raw":
		raw := client.DictionaryRaw()
		fmt.Printf("Raw dictionary (%d bytes):\n%s\n", len(raw), string(raw))
		return nil

	case "version":
		v, err := client.FirmwareVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Driver version: %d\n", v)
		return nil

	case "clock":
		us, err := client.DeviceClock()
		if err != nil {
			return err
		}
		fmt.Printf("Device clock: %d us\n", us)
		return nil

	case "load":
		// load <file> - configure every motor from a JSON config file
		if len(parts) != 2 {
			return fmt.Errorf("usage: load <file>")
		}
		cfg, err := config.LoadFile(parts[1])
		if err != nil {
			return err
		}
		for name, motor := range cfg.Motors {
			wiring, err := core.ParseWiring(motor.Wiring)
			if err != nil {
				return fmt.Errorf("motor %s: %w", name, err)
			}
			pins := make([]uint8, len(motor.Pins))
			for i, p := range motor.Pins {
				pins[i] = uint8(p)
			}
			if err := client.ConfigureStepper(motor.OID, uint8(wiring), motor.StepsPerRev, motor.RPM, pins); err != nil {
				return fmt.Errorf("motor %s: %w", name, err)
			}
			fmt.Printf("Configured %s as oid %d (%s, %d steps/rev, %d RPM)\n",
				name, motor.OID, motor.Wiring, motor.StepsPerRev, motor.RPM)
		}
		return nil

	case "config":
		// config <oid> <wiring 0|1|2> <steps_per_rev> <rpm> <pin>...
		if len(parts) < 6 {
			return fmt.Errorf("usage: config <oid> <wiring> <steps_per_rev> <rpm> <pin>...")
		}
		oid, err := parseU8(parts[1])
		if err != nil {
			return err
		}
		wiring, err := parseU8(parts[2])
		if err != nil {
			return err
		}
		stepsPerRev, err := parseU32(parts[3])
		if err != nil {
			return err
		}
		rpm, err := parseU32(parts[4])
		if err != nil {
			return err
		}
		pins := make([]uint8, 0, len(parts)-5)
		for _, p := range parts[5:] {
			pin, err := parseU8(p)
			if err != nil {
				return err
			}
			pins = append(pins, pin)
		}
		return client.ConfigureStepper(oid, wiring, stepsPerRev, rpm, pins)

	case "move":
		if len(parts) != 3 {
			return fmt.Errorf("usage: move <oid> <steps>")
		}
		oid, err := parseU8(parts[1])
		if err != nil {
			return err
		}
		steps, err := strconv.ParseInt(parts[2], 10, 32)
		if err != nil {
			return fmt.Errorf("bad step count %q: %w", parts[2], err)
		}
		return client.MoveStepper(oid, int32(steps))

	case "speed":
		if len(parts) != 3 {
			return fmt.Errorf("usage: speed <oid> <rpm>")
		}
		oid, err := parseU8(parts[1])
		if err != nil {
			return err
		}
		rpm, err := parseU32(parts[2])
		if err != nil {
			return err
		}
		return client.SetStepperSpeed(oid, rpm)

	case "off":
		if len(parts) != 2 {
			return fmt.Errorf("usage: off <oid>")
		}
		oid, err := parseU8(parts[1])
		if err != nil {
			return err
		}
		return client.StepperOff(oid)

	case "query":
		if len(parts) != 2 {
			return fmt.Errorf("usage: query <oid>")
		}
		oid, err := parseU8(parts[1])
		if err != nil {
			return err
		}
		state, err := client.QueryStepper(oid)
		if err != nil {
			return err
		}
		fmt.Printf("oid=%d phase=%d remaining=%d position=%d\n",
			state.OID, state.Phase, state.Remaining, state.Position)
		return nil
	}

	return fmt.Errorf("unknown command %q (type 'help')", parts[0])
}

func parseU8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", s, err)
	}
	return uint8(v), nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", s, err)
	}
	return uint32(v), nil
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  load <file>           - configure motors from a JSON config file")
	fmt.Println("  config <oid> <wiring> <steps_per_rev> <rpm> <pin>...")
	fmt.Println("         wiring: 0 = two wire, 1 = four wire, 2 = five phase")
	fmt.Println("  move <oid> <steps>    - relative move, negative reverses")
	fmt.Println("  speed <oid> <rpm>     - change motor speed")
	fmt.Println("  off <oid>             - de-energize motor")
	fmt.Println("  query <oid>           - read phase/remaining/position")
	fmt.Println("  version               - driver design revision")
	fmt.Println("  clock                 - device microsecond clock")
	fmt.Println("  dict / raw            - dictionary summary / raw JSON")
	fmt.Println("  quit                  - exit")
}
