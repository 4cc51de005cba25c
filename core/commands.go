package core

import (
	"coilstep/protocol"
)

// InitCoreCommands registers the base protocol commands.
// Registration order matters for the bootstrap pair: the host only knows a
// priori that identify_response is ID 0 and identify is ID 1; every other
// ID comes from the dictionary.
func InitCoreCommands() {
	RegisterCommand("identify_response", "offset=%u data=%*s", nil)
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_version", "", handleGetVersion)
	RegisterCommand("get_clock", "", handleGetClock)

	// Responses (device to host)
	RegisterCommand("version", "version=%c", nil)
	RegisterCommand("clock", "clock=%u", nil)
}

// handleIdentify serves one chunk of the data dictionary.
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

// handleGetVersion reports the driver design revision.
func handleGetVersion(data *[]byte) error {
	SendResponse("version", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, DriverVersion)
	})
	return nil
}

// handleGetClock reports the current microsecond clock.
func handleGetClock(data *[]byte) error {
	now := MustClock().Micros()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, now)
	})
	return nil
}
