package serial

import (
	"io"
)

// Port is the serial link the host talks to the controller over.
// Implementations: native serial (github.com/tarm/serial) and in-memory
// pipes for tests.
type Port interface {
	io.ReadWriteCloser

	// Flush pushes any buffered data out.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC devices ignore this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the standard configuration for a coilstep
// controller.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
