//go:build rp2350

// RP2350 firmware entry point. The main loop is cooperative: pump the
// serial transport, then advance any in-flight moves by one step. Step
// timing comes from the hardware timer, so transport work between polls
// only delays a step, never loses one.
package main

import (
	"time"

	"machine"

	"coilstep/core"
	"coilstep/protocol"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport
)

// ledBlink signals boot progress without a console.
func ledBlink(count int) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < count; i++ {
		led.High()
		time.Sleep(150 * time.Millisecond)
		led.Low()
		time.Sleep(150 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)
}

func main() {
	InitUSB()

	// Clear any watchdog state left over from a previous reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitClock()
	core.SetGPIODriver(NewRPGPIODriver())

	core.InitCoreCommands()
	core.InitGPIOCommands()
	core.InitStepperCommands()

	ledBlink(1)

	// Build and cache the dictionary once every command is registered.
	if _, err := core.GetGlobalDictionary().Build(); err != nil {
		ledBlink(10)
		return
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, func(cmdID uint16, data *[]byte) error {
		return core.DispatchCommand(cmdID, data)
	})
	transport.SetResetCallback(func() {
		// Host restarted: stop motion and drop pin state.
		core.ShutdownAllSteppers()
		core.ShutdownAllDigitalOut()
		inputBuffer.Reset()
	})
	// Push ACKs out immediately; the host serializes on them.
	transport.SetFlushCallback(flushUSB)
	core.SetResponder(func(cmdID uint16, args func(protocol.OutputBuffer)) {
		transport.SendResponse(cmdID, args)
	})

	go usbReaderLoop()

	ledBlink(2)

	for {
		if inputBuffer.Available() > 0 {
			transport.Receive(inputBuffer)
		}

		flushUSB()

		core.PollSteppers()

		if !core.AnyStepperActive() {
			// Idle: let USB and the scheduler breathe.
			time.Sleep(10 * time.Microsecond)
		}
	}
}

func flushUSB() {
	msg := outputBuffer.Result()
	if len(msg) == 0 {
		return
	}
	if _, err := USBWriteBytes(msg); err == nil {
		outputBuffer.Reset()
	}
}

// usbReaderLoop feeds USB CDC input into the transport FIFO.
func usbReaderLoop() {
	for {
		if USBAvailable() == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		b, err := USBRead()
		if err != nil {
			continue
		}
		inputBuffer.Write([]byte{b})
	}
}
