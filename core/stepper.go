// Winding-level stepper motor driver for unipolar, bipolar and five-phase
// motors. The driver energizes the motor coils directly through GPIO pins,
// one fixed phase pattern per step, with busy-polled microsecond timing.
package core

import "errors"

// DriverVersion identifies the driver design revision.
const DriverVersion = 5

// Deceleration near the end of a move: while fewer than decelWindow steps
// remain, each step's delay grows by remaining*decelStepMicros so the rotor
// stops without overshoot. There is deliberately no matching acceleration
// ramp.
const (
	decelWindow     = 10
	decelStepMicros = 100
	microsPerMinute = 60_000_000
)

// Wiring selects the coil topology, which fixes both the number of control
// pins and the phase sequence.
type Wiring uint8

const (
	TwoWire   Wiring = iota // bipolar/unipolar through an inverting driver stage
	FourWire                // plain unipolar or H-bridge bipolar
	FivePhase               // five-phase, five-wire
)

// Phase sequences, one pattern per step, bit i = level of pin i.
//
// Four-wire steps through the classic full-step sequence; two-wire is the
// same rotation with the inverted coil pairs generated in hardware; the
// five-phase sequence is the ten-step pentagon drive.
var (
	twoWireSequence = []uint8{
		0b10,
		0b11,
		0b01,
		0b00,
	}
	fourWireSequence = []uint8{
		0b0101,
		0b0110,
		0b1010,
		0b1001,
	}
	fivePhaseSequence = []uint8{
		0b10110,
		0b10010,
		0b11010,
		0b01010,
		0b01011,
		0b01001,
		0b01101,
		0b00101,
		0b10101,
		0b10100,
	}
)

func (w Wiring) String() string {
	switch w {
	case TwoWire:
		return "two_wire"
	case FourWire:
		return "four_wire"
	case FivePhase:
		return "five_phase"
	}
	return "unknown"
}

// ParseWiring maps a configuration name to its Wiring value.
func ParseWiring(s string) (Wiring, error) {
	switch s {
	case "two_wire":
		return TwoWire, nil
	case "four_wire":
		return FourWire, nil
	case "five_phase":
		return FivePhase, nil
	}
	return 0, ErrUnknownWiring
}

// PinCount returns the number of control pins the wiring requires.
func (w Wiring) PinCount() int {
	switch w {
	case TwoWire:
		return 2
	case FourWire:
		return 4
	case FivePhase:
		return 5
	}
	return 0
}

func (w Wiring) sequence() []uint8 {
	switch w {
	case TwoWire:
		return twoWireSequence
	case FourWire:
		return fourWireSequence
	case FivePhase:
		return fivePhaseSequence
	}
	return nil
}

// Configuration errors. Hardware errors from the GPIO driver are passed
// through verbatim instead.
var (
	ErrZeroStepsPerRev = errors.New("stepper: steps per revolution must be greater than zero")
	ErrZeroSpeed       = errors.New("stepper: speed must be greater than zero RPM")
	ErrPinCount        = errors.New("stepper: pin count does not match wiring mode")
	ErrUnknownWiring   = errors.New("stepper: unknown wiring mode")
)

// MotorConfig describes one motor. Everything except the speed is fixed
// after construction.
type MotorConfig struct {
	StepsPerRev uint32
	RPM         uint32
	Wiring      Wiring
	Pins        []GPIOPin
}

// Stepper drives a single motor. It owns its pins and all stepping state;
// instances are independent and each is used from a single goroutine.
type Stepper struct {
	gpio     GPIODriver
	clock    Clock
	wiring   Wiring
	pins     []GPIOPin
	sequence []uint8

	stepsPerRev uint32
	stepDelay   uint32 // minimum microseconds between steps

	phase    int   // index into sequence, always in [0, len)
	position int64 // accumulated signed steps since construction

	// State of the in-flight move, if any.
	remaining int
	direction int
	lastStep  uint32
}

// NewStepper validates the configuration, claims the pins as outputs and
// returns a ready driver. The motor is left de-energized.
func NewStepper(gpio GPIODriver, clock Clock, cfg MotorConfig) (*Stepper, error) {
	seq := cfg.Wiring.sequence()
	if seq == nil {
		return nil, ErrUnknownWiring
	}
	if len(cfg.Pins) != cfg.Wiring.PinCount() {
		return nil, ErrPinCount
	}
	if cfg.StepsPerRev == 0 {
		return nil, ErrZeroStepsPerRev
	}

	s := &Stepper{
		gpio:        gpio,
		clock:       clock,
		wiring:      cfg.Wiring,
		pins:        append([]GPIOPin(nil), cfg.Pins...),
		sequence:    seq,
		stepsPerRev: cfg.StepsPerRev,
	}
	if err := s.SetSpeed(cfg.RPM); err != nil {
		return nil, err
	}

	for _, pin := range s.pins {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetSpeed sets the motor speed in revolutions per minute. This only
// recomputes the per-step delay; it has no immediate pin effect.
func (s *Stepper) SetSpeed(rpm uint32) error {
	if rpm == 0 {
		return ErrZeroSpeed
	}
	s.stepDelay = microsPerMinute / s.stepsPerRev / rpm
	return nil
}

// Move rotates the motor by |steps| phase-steps, negative values reverse.
// It blocks, busy-polling the clock, until the full displacement has been
// issued, then de-energizes the coils. Moving zero steps touches nothing.
func (s *Stepper) Move(steps int) error {
	if steps == 0 {
		return nil
	}
	s.StartMove(steps)
	for {
		done, err := s.PollMove()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// StartMove begins a non-blocking move. Drive it to completion with
// repeated PollMove calls; cooperative targets use this so the serial
// transport stays serviced while the motor turns.
func (s *Stepper) StartMove(steps int) {
	if steps == 0 {
		s.remaining = 0
		return
	}
	s.direction = 1
	if steps < 0 {
		s.direction = -1
		steps = -steps
	}
	s.remaining = steps
	s.lastStep = 0
}

// Active reports whether a move is in flight.
func (s *Stepper) Active() bool {
	return s.remaining > 0
}

// PollMove advances the in-flight move by at most one step. It returns
// done=true once the move has completed (including the final coil
// shutdown) or aborted on a hardware error.
func (s *Stepper) PollMove() (bool, error) {
	if s.remaining <= 0 {
		return true, nil
	}

	now := s.clock.Micros()
	threshold := s.stepDelay
	if s.remaining < decelWindow {
		threshold += uint32(s.remaining) * decelStepMicros
	}
	// Unsigned subtraction keeps this correct across clock wraparound.
	if now-s.lastStep < threshold {
		return false, nil
	}

	s.lastStep = now
	s.remaining--
	s.phase = floorMod(s.phase+s.direction, len(s.sequence))
	s.position += int64(s.direction)

	if err := s.energize(s.sequence[s.phase]); err != nil {
		s.remaining = 0
		return true, err
	}

	if s.remaining == 0 {
		// De-energize to save power and motor lifetime.
		return true, s.Off()
	}
	return false, nil
}

// Off drops all coil outputs low, removing power from the motor.
func (s *Stepper) Off() error {
	return s.energize(0)
}

// Phase returns the current index into the phase sequence.
func (s *Stepper) Phase() int {
	return s.phase
}

// Position returns the accumulated signed step count, zero at construction.
func (s *Stepper) Position() int64 {
	return s.position
}

// Remaining returns the steps left in the in-flight move.
func (s *Stepper) Remaining() int {
	return s.remaining
}

// Wiring returns the configured coil topology.
func (s *Stepper) Wiring() Wiring {
	return s.wiring
}

// StepDelay returns the current minimum inter-step delay in microseconds.
func (s *Stepper) StepDelay() uint32 {
	return s.stepDelay
}

// Version returns the driver design revision.
func (s *Stepper) Version() int {
	return DriverVersion
}

// energize writes one phase pattern to the coil pins, using the batch
// path when the GPIO driver supports it.
func (s *Stepper) energize(pattern uint8) error {
	if pw, ok := s.gpio.(PatternWriter); ok {
		return pw.WritePattern(s.pins, pattern)
	}
	for i, pin := range s.pins {
		if err := s.gpio.SetPin(pin, pattern&(1<<i) != 0); err != nil {
			return err
		}
	}
	return nil
}

// floorMod returns x mod m in [0, m) regardless of the sign of x. Go's
// native remainder is negative for negative x, which would index the phase
// table out of range when stepping backwards.
func floorMod(x, m int) int {
	r := x % m
	if r < 0 {
		r += m
	}
	return r
}
