package core

import (
	"encoding/json"
	"sync"

	"coilstep/protocol"
)

// Dictionary is the self-description the device serves to the host at
// connect time: firmware version, command and response IDs with their
// format strings, and target-registered constants. The host needs no
// compiled-in command table beyond the two bootstrap IDs.
type Dictionary struct {
	mu         sync.RWMutex
	constants  map[string]interface{}
	commandReg *CommandRegistry
	version    string
	cached     []byte
}

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(reg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:  make(map[string]interface{}),
		commandReg: reg,
		version:    protocol.Version,
	}
}

// GetGlobalDictionary returns the dictionary for the global registry.
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}

// RegisterConstant exposes a target constant (MCU name, clock frequency)
// through the global dictionary.
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = value
	d.cached = nil
}

// dictionaryJSON is the wire form of the dictionary.
type dictionaryJSON struct {
	Version   string                 `json:"version"`
	Commands  map[string]int         `json:"commands"`
	Responses map[string]int         `json:"responses"`
	Constants map[string]interface{} `json:"constants,omitempty"`
}

// Build serializes the dictionary to JSON. The result is cached until a
// constant changes; commands are assumed registered before the first
// identify arrives.
func (d *Dictionary) Build() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil {
		return d.cached, nil
	}

	out := dictionaryJSON{
		Version:   d.version,
		Commands:  make(map[string]int),
		Responses: make(map[string]int),
		Constants: d.constants,
	}
	d.commandReg.Each(func(cmd *Command) {
		entry := cmd.Name
		if cmd.Format != "" {
			entry = cmd.Name + " " + cmd.Format
		}
		if cmd.Handler != nil {
			out.Commands[entry] = int(cmd.ID)
		} else {
			out.Responses[entry] = int(cmd.ID)
		}
	})

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	d.cached = data
	return data, nil
}

// GetChunk returns up to count bytes of the serialized dictionary starting
// at offset. An empty chunk signals the end of the data.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data, err := d.Build()
	if err != nil {
		return nil
	}
	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	return data[offset:end]
}

// ParseDictionary decodes a dictionary received from a device.
func ParseDictionary(data []byte) (version string, commands, responses map[string]int, constants map[string]interface{}, err error) {
	var dj dictionaryJSON
	if err = json.Unmarshal(data, &dj); err != nil {
		return
	}
	return dj.Version, dj.Commands, dj.Responses, dj.Constants, nil
}
