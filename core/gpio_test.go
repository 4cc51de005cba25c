package core

import (
	"errors"
	"testing"

	"coilstep/protocol"
)

func digitalOutArgs(vals ...uint32) []byte {
	return encodeArgs(func(out protocol.OutputBuffer) {
		for _, v := range vals {
			protocol.EncodeVLQUint(out, v)
		}
	})
}

func TestConfigDigitalOut(t *testing.T) {
	gpio, _, _ := setupDeviceTest(t)

	data := digitalOutArgs(1, 7, 1)
	if err := handleConfigDigitalOut(&data); err != nil {
		t.Fatalf("config_digital_out: %v", err)
	}

	if len(gpio.configured) != 1 || gpio.configured[0] != 7 {
		t.Fatalf("configured = %v, want [7]", gpio.configured)
	}
	if !gpio.state[7] {
		t.Fatal("pin 7 not driven high")
	}
	dout := digitalOutputs[1]
	if dout == nil || !dout.On {
		t.Fatalf("digital out state = %+v, want On", dout)
	}
}

func TestUpdateDigitalOut(t *testing.T) {
	gpio, _, _ := setupDeviceTest(t)

	data := digitalOutArgs(2, 5, 1)
	if err := handleConfigDigitalOut(&data); err != nil {
		t.Fatalf("config_digital_out: %v", err)
	}

	update := digitalOutArgs(2, 0)
	if err := handleUpdateDigitalOut(&update); err != nil {
		t.Fatalf("update_digital_out: %v", err)
	}
	if gpio.state[5] {
		t.Fatal("pin 5 still high after update to 0")
	}
	if digitalOutputs[2].On {
		t.Fatal("output still marked On after update to 0")
	}
}

func TestUpdateDigitalOutUnknownOID(t *testing.T) {
	setupDeviceTest(t)

	update := digitalOutArgs(9, 1)
	if err := handleUpdateDigitalOut(&update); err != nil {
		t.Fatalf("update_digital_out on unknown oid = %v, want nil", err)
	}
}

func TestConfigDigitalOutTruncatedArgs(t *testing.T) {
	setupDeviceTest(t)

	data := digitalOutArgs(1)
	if err := handleConfigDigitalOut(&data); !errors.Is(err, protocol.ErrVLQTruncated) {
		t.Fatalf("truncated config_digital_out = %v, want ErrVLQTruncated", err)
	}
}

func TestShutdownAllDigitalOut(t *testing.T) {
	gpio, _, _ := setupDeviceTest(t)

	for oid, pin := range map[uint32]uint32{1: 4, 2: 6} {
		data := digitalOutArgs(oid, pin, 1)
		if err := handleConfigDigitalOut(&data); err != nil {
			t.Fatalf("config_digital_out: %v", err)
		}
	}

	ShutdownAllDigitalOut()
	if gpio.state[4] || gpio.state[6] {
		t.Fatalf("pins still high after shutdown: 4=%v 6=%v", gpio.state[4], gpio.state[6])
	}
}
