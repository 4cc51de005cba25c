package config

import (
	"errors"
	"testing"

	"coilstep/core"
)

func TestLoadConfig(t *testing.T) {
	data := []byte(`{
		"motors": {
			"turret": {
				"oid": 1,
				"wiring": "five_phase",
				"pins": [2, 3, 4, 5, 6],
				"steps_per_rev": 500,
				"rpm": 30
			}
		}
	}`)

	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	motor, ok := cfg.Motors["turret"]
	if !ok {
		t.Fatal("motor turret missing")
	}
	if motor.OID != 1 || motor.StepsPerRev != 500 || motor.RPM != 30 {
		t.Fatalf("motor = %+v", motor)
	}

	mc, err := cfg.MotorConfigFor("turret")
	if err != nil {
		t.Fatalf("MotorConfigFor: %v", err)
	}
	if mc.Wiring != core.FivePhase {
		t.Fatalf("wiring = %v, want FivePhase", mc.Wiring)
	}
	if len(mc.Pins) != 5 || mc.Pins[0] != 2 {
		t.Fatalf("pins = %v", mc.Pins)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	data := []byte(`{
		"motors": {
			"m": {"oid": 0, "pins": [0, 1, 2, 3]}
		}
	}`)

	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	motor := cfg.Motors["m"]
	if motor.Wiring != "four_wire" {
		t.Fatalf("default wiring = %q, want four_wire", motor.Wiring)
	}
	if motor.StepsPerRev != 200 {
		t.Fatalf("default steps_per_rev = %d, want 200", motor.StepsPerRev)
	}
	if motor.RPM != 60 {
		t.Fatalf("default rpm = %d, want 60", motor.RPM)
	}
}

func TestLoadConfigRejectsPinMismatch(t *testing.T) {
	data := []byte(`{
		"motors": {
			"m": {"oid": 0, "wiring": "two_wire", "pins": [0, 1, 2]}
		}
	}`)

	if _, err := LoadConfig(data); err == nil {
		t.Fatal("pin count mismatch accepted")
	}
}

func TestLoadConfigRejectsUnknownWiring(t *testing.T) {
	data := []byte(`{
		"motors": {
			"m": {"oid": 0, "wiring": "six_wire", "pins": [0]}
		}
	}`)

	_, err := LoadConfig(data)
	if !errors.Is(err, core.ErrUnknownWiring) {
		t.Fatalf("err = %v, want ErrUnknownWiring", err)
	}
}

func TestLoadConfigRejectsDuplicateOID(t *testing.T) {
	data := []byte(`{
		"motors": {
			"a": {"oid": 3, "pins": [0, 1, 2, 3]},
			"b": {"oid": 3, "pins": [4, 5, 6, 7]}
		}
	}`)

	if _, err := LoadConfig(data); err == nil {
		t.Fatal("duplicate oid accepted")
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig does not validate: %v", err)
	}
	if _, err := cfg.MotorConfigFor("motor0"); err != nil {
		t.Fatalf("MotorConfigFor(motor0): %v", err)
	}
}

func TestLoadConfigBadJSON(t *testing.T) {
	if _, err := LoadConfig([]byte("{not json")); err == nil {
		t.Fatal("malformed JSON accepted")
	}
}
