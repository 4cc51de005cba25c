//go:build rp2040

// RP2040 firmware entry point. Identical in shape to the RP2350 build,
// but uses the PIO pattern driver so every coil pattern lands on all pins
// in a single PIO cycle.
package main

import (
	"time"

	"machine"

	"coilstep/core"
	"coilstep/protocol"
	"coilstep/targets/pio"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport
)

func main() {
	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitClock()
	core.SetGPIODriver(pio.NewPatternDriver(0))

	core.InitCoreCommands()
	core.InitGPIOCommands()
	core.InitStepperCommands()

	if _, err := core.GetGlobalDictionary().Build(); err != nil {
		return
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, func(cmdID uint16, data *[]byte) error {
		return core.DispatchCommand(cmdID, data)
	})
	transport.SetResetCallback(func() {
		core.ShutdownAllSteppers()
		core.ShutdownAllDigitalOut()
		inputBuffer.Reset()
	})
	transport.SetFlushCallback(flushSerial)
	core.SetResponder(func(cmdID uint16, args func(protocol.OutputBuffer)) {
		transport.SendResponse(cmdID, args)
	})

	go serialReaderLoop()

	for {
		if inputBuffer.Available() > 0 {
			transport.Receive(inputBuffer)
		}

		flushSerial()

		core.PollSteppers()

		if !core.AnyStepperActive() {
			time.Sleep(10 * time.Microsecond)
		}
	}
}

func flushSerial() {
	msg := outputBuffer.Result()
	if len(msg) == 0 {
		return
	}
	if _, err := machine.Serial.Write(msg); err == nil {
		outputBuffer.Reset()
	}
}

func serialReaderLoop() {
	for {
		if machine.Serial.Buffered() == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		b, err := machine.Serial.ReadByte()
		if err != nil {
			continue
		}
		inputBuffer.Write([]byte{b})
	}
}
