package protocol

// EncodeFrame writes a complete frame to out: header, the payload produced
// by the callback, CRC and sync byte. The length byte is patched in once
// the payload size is known.
func EncodeFrame(out OutputBuffer, seq uint8, payload func(OutputBuffer)) {
	cursor := out.CurPosition()

	out.Output([]byte{0, seq}) // length patched below
	if payload != nil {
		payload(out)
	}

	body := out.DataSince(cursor)
	out.Update(cursor, uint8(len(body)+MessageTrailerSize))

	crc := CRC16(out.DataSince(cursor))
	out.Output([]byte{uint8(crc >> 8), uint8(crc & 0xFF), MessageValueSync})
}

// EncodeAck writes an ACK/NAK frame carrying the next expected sequence.
func EncodeAck(out OutputBuffer, seq uint8) {
	EncodeFrame(out, seq, nil)
}

// Decoder scans a raw byte stream for valid frames, resynchronizing on the
// sync byte after any framing or checksum error.
type Decoder struct {
	synced bool
}

func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Synced reports whether the decoder currently trusts its framing.
func (d *Decoder) Synced() bool { return d.synced }

// Scan consumes as much of data as possible, invoking emit for every valid
// frame found. It returns the number of bytes consumed; unconsumed bytes
// belong to an incomplete trailing frame and should be offered again once
// more data arrives.
func (d *Decoder) Scan(data []byte, emit func(Frame)) int {
	total := len(data)

	for len(data) > 0 {
		if !d.synced {
			// Discard garbage up to and including the next sync byte.
			sync := -1
			for i, b := range data {
				if b == MessageValueSync {
					sync = i
					break
				}
			}
			if sync < 0 {
				data = nil
				break
			}
			data = data[sync+1:]
			d.synced = true
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.synced = false
			continue
		}
		if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
			d.synced = false
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.synced = false
			continue
		}

		wire := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if wire != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.synced = false
			continue
		}

		payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		emit(Frame{Sequence: data[MessagePositionSeq], Payload: payload})
		data = data[msgLen:]
	}

	return total - len(data)
}
