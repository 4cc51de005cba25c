// Package mcu implements the host-side client for a coilstep controller:
// connection, dictionary retrieval, and typed wrappers for the stepper
// command set.
package mcu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coilstep/host/serial"
	"coilstep/protocol"
)

// Bootstrap command IDs. These are the only IDs fixed on both ends;
// everything else is resolved through the dictionary.
const (
	identifyResponseID = 0
	identifyID         = 1
)

const (
	dictionaryChunkSize = 40
	responseTimeout     = 2 * time.Second
)

// Dictionary is the parsed controller self-description.
type Dictionary struct {
	Version   string                 `json:"version"`
	Commands  map[string]int         `json:"commands"`
	Responses map[string]int         `json:"responses"`
	Constants map[string]interface{} `json:"constants,omitempty"`
}

// StepperState is the controller's answer to query_stepper.
type StepperState struct {
	OID       uint8
	Phase     uint8
	Remaining uint32
	Position  int32
}

// Client is a connection to one coilstep controller.
type Client struct {
	transport *protocol.HostTransport
	port      serial.Port

	dictionary     *Dictionary
	dictionaryData []byte

	// Bare command/response names to IDs, split out of the dictionary's
	// "name format" keys.
	commands  map[string]uint16
	responses map[string]uint16

	connected bool
}

func NewClient() *Client {
	return &Client{}
}

// Connect opens device and attaches to the controller behind it.
func (c *Client) Connect(device string) error {
	return c.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects with a custom serial config.
func (c *Client) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	// Give the controller time to settle if it just reset.
	time.Sleep(100 * time.Millisecond)

	c.Attach(port)
	return nil
}

// Attach starts the transport over an already-open port. Tests use this
// with an in-memory pipe.
func (c *Client) Attach(port serial.Port) {
	c.port = port
	c.transport = protocol.NewHostTransport(port)
	c.connected = true
}

// Close shuts down the transport and the port.
func (c *Client) Close() error {
	c.connected = false
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

// IsConnected reports whether the client has an open transport.
func (c *Client) IsConnected() bool {
	return c.connected
}

// Identify retrieves and parses the controller's dictionary. It must
// complete before any named command can be sent.
func (c *Client) Identify() error {
	if !c.connected {
		return fmt.Errorf("not connected")
	}

	var buf bytes.Buffer
	offset := uint32(0)
	for i := 0; i < 1000; i++ {
		chunk, err := c.fetchDictionaryChunk(offset, dictionaryChunkSize)
		if err != nil {
			return fmt.Errorf("dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
	}

	c.dictionaryData = buf.Bytes()
	return c.parseDictionary()
}

// fetchDictionaryChunk requests one dictionary chunk via the bootstrap
// identify command.
func (c *Client) fetchDictionaryChunk(offset uint32, count uint8) ([]byte, error) {
	err := c.transport.SendCommand(identifyID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, offset)
		protocol.EncodeVLQUint(out, uint32(count))
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.awaitResponse(identifyResponseID)
	if err != nil {
		return nil, err
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: sent %d, got %d", offset, respOffset)
	}
	return protocol.DecodeVLQBytes(&payload)
}

func (c *Client) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(c.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to unmarshal dictionary: %w", err)
	}

	c.dictionary = dict
	c.commands = make(map[string]uint16, len(dict.Commands))
	for entry, id := range dict.Commands {
		name, _, _ := strings.Cut(entry, " ")
		c.commands[name] = uint16(id)
	}
	c.responses = make(map[string]uint16, len(dict.Responses))
	for entry, id := range dict.Responses {
		name, _, _ := strings.Cut(entry, " ")
		c.responses[name] = uint16(id)
	}
	return nil
}

// Dictionary returns the parsed dictionary, nil before Identify.
func (c *Client) Dictionary() *Dictionary {
	return c.dictionary
}

// DictionaryRaw returns the raw dictionary JSON.
func (c *Client) DictionaryRaw() []byte {
	return c.dictionaryData
}

// SendCommand sends a command by dictionary name and waits for the ACK.
func (c *Client) SendCommand(name string, args func(protocol.OutputBuffer)) error {
	if !c.connected {
		return fmt.Errorf("not connected")
	}
	if c.dictionary == nil {
		return fmt.Errorf("dictionary not loaded")
	}
	cmdID, ok := c.commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	return c.transport.SendCommand(cmdID, args)
}

// awaitResponse returns the payload of the next response carrying wantID,
// discarding unrelated responses.
func (c *Client) awaitResponse(wantID uint16) ([]byte, error) {
	deadline := time.Now().Add(responseTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timeout waiting for response %d", wantID)
		}
		frame, err := c.transport.ReceiveResponse(remaining)
		if err != nil {
			return nil, err
		}
		payload := frame.Payload
		cmdID, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			continue
		}
		if uint16(cmdID) == wantID {
			return payload, nil
		}
	}
}

// request sends a named command and waits for its named response.
func (c *Client) request(cmd string, args func(protocol.OutputBuffer), resp string) ([]byte, error) {
	respID, ok := c.responses[resp]
	if !ok {
		return nil, fmt.Errorf("unknown response: %s", resp)
	}
	if err := c.SendCommand(cmd, args); err != nil {
		return nil, err
	}
	return c.awaitResponse(respID)
}

// ConfigureStepper creates a motor under oid on the controller.
func (c *Client) ConfigureStepper(oid uint8, wiring uint8, stepsPerRev, rpm uint32, pins []uint8) error {
	return c.SendCommand("config_stepper", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, uint32(wiring))
		protocol.EncodeVLQUint(out, stepsPerRev)
		protocol.EncodeVLQUint(out, rpm)
		protocol.EncodeVLQBytes(out, pins)
	})
}

// SetStepperSpeed changes the motor's speed in RPM.
func (c *Client) SetStepperSpeed(oid uint8, rpm uint32) error {
	return c.SendCommand("set_stepper_speed", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQUint(out, rpm)
	})
}

// MoveStepper starts a relative move; negative steps reverse.
func (c *Client) MoveStepper(oid uint8, steps int32) error {
	return c.SendCommand("move_stepper", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
		protocol.EncodeVLQInt(out, steps)
	})
}

// StepperOff de-energizes the motor.
func (c *Client) StepperOff(oid uint8) error {
	return c.SendCommand("stepper_off", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
	})
}

// QueryStepper reads back the motor's phase, remaining steps and
// position.
func (c *Client) QueryStepper(oid uint8) (StepperState, error) {
	payload, err := c.request("query_stepper", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(oid))
	}, "stepper_state")
	if err != nil {
		return StepperState{}, err
	}

	var state StepperState
	gotOID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StepperState{}, fmt.Errorf("decode oid: %w", err)
	}
	phase, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StepperState{}, fmt.Errorf("decode phase: %w", err)
	}
	remaining, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StepperState{}, fmt.Errorf("decode remaining: %w", err)
	}
	position, err := protocol.DecodeVLQInt(&payload)
	if err != nil {
		return StepperState{}, fmt.Errorf("decode position: %w", err)
	}

	state.OID = uint8(gotOID)
	state.Phase = uint8(phase)
	state.Remaining = remaining
	state.Position = position
	return state, nil
}

// FirmwareVersion reads the controller's driver design revision.
func (c *Client) FirmwareVersion() (uint32, error) {
	payload, err := c.request("get_version", nil, "version")
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}

// DeviceClock reads the controller's microsecond clock.
func (c *Client) DeviceClock() (uint32, error) {
	payload, err := c.request("get_clock", nil, "clock")
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}
