//go:build rp2350

package main

import (
	"machine"
)

// InitUSB configures USB CDC serial. On the RP2350 machine.Serial is USB
// CDC, not a UART; the descriptors come from TinyGo's runtime.
func InitUSB() {
	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}
}

// USBAvailable returns the number of buffered input bytes.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data out over USB CDC.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
