package protocol

// CommandHandler decodes and executes one command. The handler consumes its
// own arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device-side endpoint of the link: it validates incoming
// frames, dispatches the commands they carry, and acknowledges every frame
// with the next expected sequence number. A frame arriving out of sequence
// is not executed; the ACK then acts as a NAK telling the host where to
// resume.
//
// The device side is single threaded: Receive and SendResponse are only
// called from the firmware main loop.
type Transport struct {
	dec     *Decoder
	nextSeq uint8
	output  OutputBuffer
	handler CommandHandler

	resetCallback func()
	flushCallback func()
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		dec:     NewDecoder(),
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// SetResetCallback registers a hook invoked when a host restart is
// detected (sequence window back at its initial value).
func (t *Transport) SetResetCallback(cb func()) { t.resetCallback = cb }

// SetFlushCallback registers a hook invoked after every ACK so the target
// can push it out immediately rather than waiting for the main loop.
func (t *Transport) SetFlushCallback(cb func()) { t.flushCallback = cb }

// Receive processes buffered input, executing any complete commands.
func (t *Transport) Receive(input InputBuffer) {
	wasSynced := t.dec.Synced()
	consumed := t.dec.Scan(input.Data(), t.handleFrame)
	input.Pop(consumed)

	if wasSynced != t.dec.Synced() && t.dec.Synced() {
		// Just regained sync; tell the host where we are.
		t.ack()
	}
}

func (t *Transport) handleFrame(f Frame) {
	if f.Sequence == MessageDest && t.nextSeq != MessageDest {
		// Host restarted; fall back to the initial sequence.
		t.nextSeq = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	if f.Sequence == t.nextSeq {
		t.nextSeq = NextSequence(f.Sequence)
		t.dispatch(f.Payload)
	}
	t.ack()
}

// dispatch executes the commands packed into one frame payload.
func (t *Transport) dispatch(payload []byte) {
	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			// A handler that failed may not have consumed its
			// arguments; the rest of the frame is unparseable.
			return
		}
	}
}

func (t *Transport) ack() {
	EncodeAck(t.output, t.nextSeq)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendResponse queues a response frame. Responses reuse the current ACK
// sequence; the host matches them by command ID, not sequence.
func (t *Transport) SendResponse(cmdID uint16, args func(OutputBuffer)) {
	EncodeFrame(t.output, t.nextSeq, func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset restores the initial transport state.
func (t *Transport) Reset() {
	t.dec = NewDecoder()
	t.nextSeq = MessageDest
	if t.resetCallback != nil {
		t.resetCallback()
	}
}
