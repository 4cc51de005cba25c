package serial

import (
	"io"
)

// LoopbackPort is one end of an in-memory duplex link. Tests use a pair
// of these in place of real hardware.
type LoopbackPort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// Pipe returns two connected ports: writes on one are reads on the other.
func Pipe() (a, b *LoopbackPort) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &LoopbackPort{r: ar, w: aw}, &LoopbackPort{r: br, w: bw}
}

func (p *LoopbackPort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *LoopbackPort) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *LoopbackPort) Flush() error                { return nil }

func (p *LoopbackPort) Close() error {
	p.r.Close()
	return p.w.Close()
}
