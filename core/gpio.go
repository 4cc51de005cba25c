// Manual digital output control, used for bring-up and coil diagnostics
// before a stepper is configured.
package core

import (
	"coilstep/protocol"
)

// DigitalOut is one host-configured output pin.
type DigitalOut struct {
	OID uint8
	Pin GPIOPin
	On  bool
}

var digitalOutputs = make(map[uint8]*DigitalOut)

// InitGPIOCommands registers the digital output commands.
func InitGPIOCommands() {
	RegisterCommand("config_digital_out", "oid=%c pin=%u value=%c", handleConfigDigitalOut)
	RegisterCommand("update_digital_out", "oid=%c value=%c", handleUpdateDigitalOut)
}

func handleConfigDigitalOut(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dout := &DigitalOut{
		OID: uint8(oid),
		Pin: GPIOPin(pin),
	}
	if err := MustGPIO().ConfigureOutput(dout.Pin); err != nil {
		return err
	}

	dout.On = value != 0
	if err := MustGPIO().SetPin(dout.Pin, dout.On); err != nil {
		return err
	}

	digitalOutputs[uint8(oid)] = dout
	return nil
}

func handleUpdateDigitalOut(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dout, exists := digitalOutputs[uint8(oid)]
	if !exists {
		// Not configured; nothing to update.
		return nil
	}

	dout.On = value != 0
	return MustGPIO().SetPin(dout.Pin, dout.On)
}

// ShutdownAllDigitalOut drops every configured output low.
func ShutdownAllDigitalOut() {
	for _, dout := range digitalOutputs {
		if dout != nil {
			_ = MustGPIO().SetPin(dout.Pin, false)
			dout.On = false
		}
	}
}
