package protocol

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ResponseHandler is invoked for every response frame received from the
// device. The handler consumes the response arguments from data.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host-side endpoint of the link. It sends command
// frames and waits for the device's ACK; response frames arriving in
// between are routed to a handler callback and a channel for synchronous
// consumers.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq     uint32 // atomic; sequence for the next command
	isSynchronized uint32 // atomic bool

	dec   *Decoder
	input *FifoBuffer

	ackChan      chan Frame
	responseChan chan Frame

	responseHandler ResponseHandler

	writeMutex sync.Mutex

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a host transport over port and begins reading
// from it in the background.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		dec:          NewDecoder(),
		input:        NewFifoBuffer(512),
		ackChan:      make(chan Frame, 1),
		responseChan: make(chan Frame, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	atomic.StoreUint32(&t.isSynchronized, 1)

	go t.readLoop()
	return t
}

// SetResponseHandler registers a callback for asynchronous responses.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.responseHandler = handler
}

// SendCommand sends one command frame and waits for the device's ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout is SendCommand with a caller-chosen ACK deadline.
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(OutputBuffer), timeout time.Duration) error {
	msg, err := t.buildCommand(cmdID, args)
	if err != nil {
		return err
	}
	if err := t.writeMessage(msg); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return t.waitForAck(timeout)
}

func (t *HostTransport) buildCommand(cmdID uint16, args func(OutputBuffer)) ([]byte, error) {
	seq := uint8(atomic.LoadUint32(&t.currentSeq))

	scratch := NewScratchOutput()
	EncodeFrame(scratch, seq, func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})

	msg := scratch.Result()
	if len(msg) > MessageLengthMax {
		return nil, fmt.Errorf("command %d too long: %d bytes (max %d)", cmdID, len(msg), MessageLengthMax)
	}

	out := make([]byte, len(msg))
	copy(out, msg)
	return out, nil
}

func (t *HostTransport) writeMessage(msg []byte) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

func (t *HostTransport) waitForAck(timeout time.Duration) error {
	select {
	case ack := <-t.ackChan:
		seq := uint8(atomic.LoadUint32(&t.currentSeq))
		want := NextSequence(seq)
		if ack.Sequence != want {
			// Device expects a different sequence: our command was
			// not executed.
			return fmt.Errorf("nak: device expects seq 0x%02x, sent 0x%02x", ack.Sequence, seq)
		}
		atomic.StoreUint32(&t.currentSeq, uint32(want))
		return nil

	case <-time.After(timeout):
		return fmt.Errorf("ack timeout after %v", timeout)

	case <-t.stopChan:
		return fmt.Errorf("transport stopped")
	}
}

// ReceiveResponse returns the next response frame, waiting up to timeout.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Frame, error) {
	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-time.After(timeout):
		return Frame{}, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return Frame{}, fmt.Errorf("transport stopped")
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if err != nil {
			if err == io.EOF {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			t.input.Write(buffer[:n])
			consumed := t.dec.Scan(t.input.Data(), t.dispatchFrame)
			t.input.Pop(consumed)
		}
	}
}

func (t *HostTransport) dispatchFrame(f Frame) {
	if len(f.Payload) == 0 {
		// ACK/NAK
		select {
		case t.ackChan <- f:
		default:
		}
		return
	}

	if t.responseHandler != nil {
		payload := f.Payload
		if cmdID, err := DecodeVLQUint(&payload); err == nil {
			_ = t.responseHandler(uint16(cmdID), &payload)
		}
	}

	select {
	case t.responseChan <- f:
	default:
		// Channel full; drop the oldest response.
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- f
	}
}

// Close stops the read loop and closes the underlying port.
func (t *HostTransport) Close() error {
	close(t.stopChan)
	<-t.doneChan

	if t.port != nil {
		return t.port.Close()
	}
	return nil
}
