package core

import (
	"errors"
	"sync"

	"coilstep/protocol"
)

// CommandHandler executes one command, decoding its own arguments from the
// frame data.
type CommandHandler func(data *[]byte) error

// Command is one registered link command. Entries with a nil handler are
// response messages (device to host); they occupy IDs so the host can
// decode them, but are never dispatched.
type Command struct {
	ID      uint16
	Name    string
	Format  string
	Handler CommandHandler
}

// CommandRegistry maps command names and IDs to handlers. IDs are assigned
// in registration order, so both ends must register the bootstrap commands
// identically; everything else is resolved through the dictionary.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

var globalRegistry = NewCommandRegistry()

var ErrUnknownCommand = errors.New("unknown command ID")

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand registers a command in the global registry and returns
// its ID. Registering the same name twice returns the original ID.
func RegisterCommand(name, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// LookupCommand resolves a command name in the global registry.
func LookupCommand(name string) (uint16, bool) {
	return globalRegistry.Lookup(name)
}

// DispatchCommand executes a command from the global registry.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func (r *CommandRegistry) Register(name, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Get returns the command registered under id.
func (r *CommandRegistry) Get(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Each calls fn for every registered command.
func (r *CommandRegistry) Each(fn func(*Command)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := uint16(0); id < r.nextID; id++ {
		if cmd, ok := r.commands[id]; ok {
			fn(cmd)
		}
	}
}

func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.Get(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// responder delivers response frames to the host. The target main (or a
// test harness) installs it; until then responses are dropped.
var responder func(cmdID uint16, args func(protocol.OutputBuffer))

// SetResponder installs the response transmit hook.
func SetResponder(fn func(cmdID uint16, args func(protocol.OutputBuffer))) {
	responder = fn
}

// SendResponse encodes and queues a response message by name.
func SendResponse(name string, args func(output protocol.OutputBuffer)) {
	if responder == nil {
		return
	}
	if id, ok := LookupCommand(name); ok {
		responder(id, args)
	}
}
