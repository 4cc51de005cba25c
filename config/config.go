// Package config loads motor definitions for standalone targets from
// JSON. Hosted setups configure motors over the link instead; this file
// format exists for targets that run without a host.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"coilstep/core"
)

// MotorConfig describes one motor in the configuration file.
type MotorConfig struct {
	// OID is the object ID the motor registers under.
	OID uint8 `json:"oid"`

	// Wiring is one of "two_wire", "four_wire", "five_phase".
	Wiring string `json:"wiring"`

	// Pins are the coil control pins, in phase-table bit order.
	Pins []uint32 `json:"pins"`

	StepsPerRev uint32 `json:"steps_per_rev"`
	RPM         uint32 `json:"rpm"`
}

// Config is the root of the configuration file.
type Config struct {
	Motors map[string]MotorConfig `json:"motors"`
}

// LoadConfig parses a JSON configuration and applies defaults.
func LoadConfig(jsonData []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadConfig(data)
}

func applyDefaults(cfg *Config) {
	for name, motor := range cfg.Motors {
		if motor.Wiring == "" {
			motor.Wiring = "four_wire"
		}
		if motor.StepsPerRev == 0 {
			motor.StepsPerRev = 200
		}
		if motor.RPM == 0 {
			motor.RPM = 60
		}
		cfg.Motors[name] = motor
	}
}

// Validate checks every motor definition against the wiring tables.
func (c *Config) Validate() error {
	seen := make(map[uint8]string)
	for name, motor := range c.Motors {
		wiring, err := core.ParseWiring(motor.Wiring)
		if err != nil {
			return fmt.Errorf("motor %s: wiring %q: %w", name, motor.Wiring, err)
		}
		if len(motor.Pins) != wiring.PinCount() {
			return fmt.Errorf("motor %s: %s wiring needs %d pins, got %d",
				name, motor.Wiring, wiring.PinCount(), len(motor.Pins))
		}
		if other, dup := seen[motor.OID]; dup {
			return fmt.Errorf("motor %s: oid %d already used by %s", name, motor.OID, other)
		}
		seen[motor.OID] = name
	}
	return nil
}

// MotorConfigFor converts one motor entry to the driver configuration.
func (c *Config) MotorConfigFor(name string) (core.MotorConfig, error) {
	motor, ok := c.Motors[name]
	if !ok {
		return core.MotorConfig{}, fmt.Errorf("no motor named %s", name)
	}
	wiring, err := core.ParseWiring(motor.Wiring)
	if err != nil {
		return core.MotorConfig{}, err
	}

	pins := make([]core.GPIOPin, len(motor.Pins))
	for i, p := range motor.Pins {
		pins[i] = core.GPIOPin(p)
	}
	return core.MotorConfig{
		StepsPerRev: motor.StepsPerRev,
		RPM:         motor.RPM,
		Wiring:      wiring,
		Pins:        pins,
	}, nil
}

// DefaultConfig returns a single four-wire motor on the first four GPIOs,
// the usual breadboard hookup for a 28BYJ-48 behind a ULN2003.
func DefaultConfig() *Config {
	return &Config{
		Motors: map[string]MotorConfig{
			"motor0": {
				OID:         0,
				Wiring:      "four_wire",
				Pins:        []uint32{0, 1, 2, 3},
				StepsPerRev: 2048,
				RPM:         15,
			},
		},
	}
}
