package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	// Returns an error if the pin is invalid or unavailable.
	ConfigureOutput(pin GPIOPin) error

	// SetPin drives the pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads back the current pin state
	GetPin(pin GPIOPin) (bool, error)
}

// PatternWriter is an optional extension of GPIODriver for hardware that
// can update a whole winding pattern in one operation (e.g. a PIO state
// machine driving consecutive pins). Bit i of pattern is the level for
// pins[i]. Drivers without this run one SetPin per coil instead.
type PatternWriter interface {
	WritePattern(pins []GPIOPin, pattern uint8) error
}

// Global singleton used by the command layer.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
