//go:build rp2040

// Package pio drives a whole winding pattern through an RP2040 PIO state
// machine: one FIFO word updates every coil pin in the same cycle, so the
// coils never pass through a mixed intermediate state the way sequential
// SetPin calls do.
package pio

import (
	"errors"

	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"coilstep/core"
)

// The PIO program is two instructions: pull a word from the FIFO, shift
// its low bits onto the OUT pins.
//
//	.wrap_target
//	pull block
//	out pins, <coils>
//	.wrap
func buildPatternProgram(coils uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestPins, coils).Encode(),
	}
}

const patternPIOOrigin = 0

var (
	ErrPinsNotConsecutive = errors.New("pio: coil pins must be consecutive")
	ErrTooManyCoils       = errors.New("pio: at most 8 coil pins")
)

// PatternDriver implements core.GPIODriver plus core.PatternWriter. Coil
// banks run on PIO state machines; pins outside a bank fall back to plain
// GPIO.
type PatternDriver struct {
	pio            *rp2pio.PIO
	nextSM         uint8
	banks          []*patternBank
	configuredPins map[core.GPIOPin]machine.Pin
}

type patternBank struct {
	sm    rp2pio.StateMachine
	base  core.GPIOPin
	coils uint8
}

// NewPatternDriver creates a driver on PIO0 or PIO1.
func NewPatternDriver(pioNum uint8) *PatternDriver {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &PatternDriver{
		pio:            pioHW,
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *PatternDriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

func (d *PatternDriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}
	machinePin.Set(value)
	return nil
}

func (d *PatternDriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, nil
	}
	return machinePin.Get(), nil
}

// WritePattern pushes one coil pattern to the state machine owning pins.
// The first call for a pin set claims a state machine and loads the
// program; subsequent calls are a single FIFO write.
func (d *PatternDriver) WritePattern(pins []core.GPIOPin, pattern uint8) error {
	bank, err := d.bankFor(pins)
	if err != nil {
		return err
	}
	for bank.sm.IsTxFIFOFull() {
	}
	bank.sm.TxPut(uint32(pattern))
	return nil
}

func (d *PatternDriver) bankFor(pins []core.GPIOPin) (*patternBank, error) {
	if len(pins) > 8 {
		return nil, ErrTooManyCoils
	}
	for i := 1; i < len(pins); i++ {
		if pins[i] != pins[0]+core.GPIOPin(i) {
			return nil, ErrPinsNotConsecutive
		}
	}

	for _, bank := range d.banks {
		if bank.base == pins[0] && bank.coils == uint8(len(pins)) {
			return bank, nil
		}
	}
	return d.claimBank(pins[0], uint8(len(pins)))
}

func (d *PatternDriver) claimBank(base core.GPIOPin, coils uint8) (*patternBank, error) {
	sm := d.pio.StateMachine(d.nextSM)
	sm.TryClaim()
	d.nextSM++

	program := buildPatternProgram(coils)
	offset, err := d.pio.AddProgram(program, patternPIOOrigin)
	if err != nil {
		return nil, err
	}

	basePin := machine.Pin(base)
	for i := uint8(0); i < coils; i++ {
		machine.Pin(base + core.GPIOPin(i)).Configure(machine.PinConfig{Mode: d.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(basePin, coils)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(basePin, coils, true)
	sm.SetEnabled(true)

	bank := &patternBank{sm: sm, base: base, coils: coils}
	d.banks = append(d.banks, bank)
	return bank, nil
}
