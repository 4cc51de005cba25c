package core

import (
	"errors"

	"coilstep/protocol"
)

// ErrUnknownStepper reports a command naming an OID that was never
// configured.
var ErrUnknownStepper = errors.New("unknown stepper oid")

// steppers maps host-assigned object IDs to configured motors.
var steppers = make(map[uint8]*Stepper)

// InitStepperCommands registers the stepper command set and its
// state response.
func InitStepperCommands() {
	RegisterCommand("config_stepper", "oid=%c wiring=%c steps_per_rev=%u rpm=%u pins=%*s", handleConfigStepper)
	RegisterCommand("set_stepper_speed", "oid=%c rpm=%u", handleSetStepperSpeed)
	RegisterCommand("move_stepper", "oid=%c steps=%i", handleMoveStepper)
	RegisterCommand("stepper_off", "oid=%c", handleStepperOff)
	RegisterCommand("query_stepper", "oid=%c", handleQueryStepper)
	RegisterCommand("stepper_state", "oid=%c phase=%c remaining=%u position=%i", nil)
}

func handleConfigStepper(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	wiring, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	stepsPerRev, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	rpm, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pinBytes, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}

	pins := make([]GPIOPin, len(pinBytes))
	for i, p := range pinBytes {
		pins[i] = GPIOPin(p)
	}

	motor, err := NewStepper(MustGPIO(), MustClock(), MotorConfig{
		StepsPerRev: stepsPerRev,
		RPM:         rpm,
		Wiring:      Wiring(wiring),
		Pins:        pins,
	})
	if err != nil {
		return err
	}

	steppers[uint8(oid)] = motor
	return nil
}

func handleSetStepperSpeed(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	rpm, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor, exists := steppers[uint8(oid)]
	if !exists {
		return ErrUnknownStepper
	}
	return motor.SetSpeed(rpm)
}

func handleMoveStepper(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	steps, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	motor, exists := steppers[uint8(oid)]
	if !exists {
		return ErrUnknownStepper
	}
	motor.StartMove(int(steps))
	return nil
}

func handleStepperOff(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor, exists := steppers[uint8(oid)]
	if !exists {
		return ErrUnknownStepper
	}
	return motor.Off()
}

func handleQueryStepper(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor, exists := steppers[uint8(oid)]
	if !exists {
		return ErrUnknownStepper
	}

	SendResponse("stepper_state", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, oid)
		protocol.EncodeVLQUint(out, uint32(motor.Phase()))
		protocol.EncodeVLQUint(out, uint32(motor.Remaining()))
		protocol.EncodeVLQInt(out, int32(motor.Position()))
	})
	return nil
}

// PollSteppers advances every active move by at most one step. The
// firmware main loop calls this between transport reads so serial
// traffic stays serviced while motors run.
func PollSteppers() {
	for _, motor := range steppers {
		if motor.Active() {
			// Errors here leave the move cancelled; the host learns
			// the final state from query_stepper.
			_, _ = motor.PollMove()
		}
	}
}

// AnyStepperActive reports whether any configured motor has a move in
// flight. Main loops use it to decide whether they may sleep.
func AnyStepperActive() bool {
	for _, motor := range steppers {
		if motor.Active() {
			return true
		}
	}
	return false
}

// ShutdownAllSteppers de-energizes every configured motor.
func ShutdownAllSteppers() {
	for _, motor := range steppers {
		_ = motor.Off()
	}
}
