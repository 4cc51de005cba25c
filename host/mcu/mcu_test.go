package mcu

import (
	"testing"

	"coilstep/core"
	"coilstep/host/serial"
	"coilstep/protocol"
)

// testClock advances on every read so moves complete in simulated time.
type testClock struct {
	now uint32
}

func (c *testClock) Micros() uint32 {
	c.now += 100
	return c.now
}

// testGPIO accepts all pin operations.
type testGPIO struct {
	state map[core.GPIOPin]bool
}

func (g *testGPIO) ConfigureOutput(pin core.GPIOPin) error { return nil }

func (g *testGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.state[pin] = value
	return nil
}

func (g *testGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.state[pin], nil
}

// runDevice pumps a simulated controller on deviceEnd until the pipe
// closes: transport in, command dispatch, responses and ACKs out, and
// motor polling between reads.
func runDevice(deviceEnd *serial.LoopbackPort) {
	input := protocol.NewFifoBuffer(512)
	scratch := protocol.NewScratchOutput()
	transport := protocol.NewTransport(scratch, func(cmdID uint16, data *[]byte) error {
		return core.DispatchCommand(cmdID, data)
	})
	core.SetResponder(func(cmdID uint16, args func(protocol.OutputBuffer)) {
		transport.SendResponse(cmdID, args)
	})

	buf := make([]byte, 256)
	for {
		n, err := deviceEnd.Read(buf)
		if err != nil {
			return
		}
		input.Write(buf[:n])
		transport.Receive(input)
		for core.AnyStepperActive() {
			core.PollSteppers()
		}
		if msg := scratch.Result(); len(msg) > 0 {
			if _, err := deviceEnd.Write(msg); err != nil {
				return
			}
			scratch.Reset()
		}
	}
}

func TestClientAgainstSimulatedController(t *testing.T) {
	core.SetGPIODriver(&testGPIO{state: make(map[core.GPIOPin]bool)})
	core.SetClock(&testClock{})
	core.InitCoreCommands()
	core.InitStepperCommands()
	core.InitGPIOCommands()

	hostEnd, deviceEnd := serial.Pipe()
	go runDevice(deviceEnd)

	client := NewClient()
	client.Attach(hostEnd)
	defer client.Close()

	if err := client.Identify(); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	dict := client.Dictionary()
	if dict == nil {
		t.Fatal("no dictionary after Identify")
	}
	for _, name := range []string{"config_stepper", "move_stepper", "set_stepper_speed", "stepper_off", "query_stepper"} {
		if _, ok := client.commands[name]; !ok {
			t.Fatalf("dictionary missing command %q", name)
		}
	}
	if _, ok := client.responses["stepper_state"]; !ok {
		t.Fatal("dictionary missing stepper_state response")
	}

	version, err := client.FirmwareVersion()
	if err != nil {
		t.Fatalf("FirmwareVersion: %v", err)
	}
	if version != 5 {
		t.Fatalf("firmware version = %d, want 5", version)
	}

	if err := client.ConfigureStepper(0, uint8(core.FourWire), 200, 60, []uint8{2, 3, 4, 5}); err != nil {
		t.Fatalf("ConfigureStepper: %v", err)
	}

	if err := client.MoveStepper(0, 4); err != nil {
		t.Fatalf("MoveStepper: %v", err)
	}
	state, err := client.QueryStepper(0)
	if err != nil {
		t.Fatalf("QueryStepper: %v", err)
	}
	if state.OID != 0 || state.Remaining != 0 {
		t.Fatalf("state after move = %+v, want oid 0, remaining 0", state)
	}
	if state.Position != 4 {
		t.Fatalf("position = %d, want 4", state.Position)
	}

	if err := client.SetStepperSpeed(0, 120); err != nil {
		t.Fatalf("SetStepperSpeed: %v", err)
	}
	if err := client.MoveStepper(0, -2); err != nil {
		t.Fatalf("MoveStepper(-2): %v", err)
	}
	state, err = client.QueryStepper(0)
	if err != nil {
		t.Fatalf("QueryStepper: %v", err)
	}
	if state.Position != 2 {
		t.Fatalf("position after reverse = %d, want 2", state.Position)
	}

	clock, err := client.DeviceClock()
	if err != nil {
		t.Fatalf("DeviceClock: %v", err)
	}
	if clock == 0 {
		t.Fatal("device clock reads zero")
	}

	if err := client.SendCommand("no_such_command", nil); err == nil {
		t.Fatal("sending an unknown command succeeded")
	}
}
