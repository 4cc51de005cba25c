// Package protocol implements the coilstep serial link protocol.
//
// Messages are framed as: length, sequence, payload, crc16 (big endian),
// sync byte. The payload is a VLQ-encoded command ID followed by the
// command's VLQ-encoded arguments. A frame with an empty payload is an
// ACK/NAK carrying the receiver's next expected sequence number.
package protocol

// Version identifies the coilstep firmware build.
const Version = "coilstep-0.1.0"

// Framing constants
const (
	MessageHeaderSize  = 2 // length + sequence
	MessageTrailerSize = 3 // crc16 + sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E

	// Sequence bytes carry MessageDest in the high nibble in both
	// directions, so a sequence byte can never alias the sync byte.
	MessageDest    = 0x10
	MessageSeqMask = 0x0F
)

// Frame is a single decoded message frame.
type Frame struct {
	Sequence uint8
	Payload  []byte
}

// NextSequence returns the sequence byte following seq, wrapping within
// the 0x10-0x1F window.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
