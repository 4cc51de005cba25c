package serial

import (
	"bytes"
	"testing"
)

func TestPipeCarriesDataBothWays(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		a.Write([]byte("ping"))
	}()
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	if err != nil {
		t.Fatalf("read from b: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte("ping")) {
		t.Fatalf("b read %q, want ping", buf[:n])
	}

	go func() {
		b.Write([]byte("pong"))
	}()
	n, err = a.Read(buf)
	if err != nil {
		t.Fatalf("read from a: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte("pong")) {
		t.Fatalf("a read %q, want pong", buf[:n])
	}
}

func TestPipeCloseUnblocksReader(t *testing.T) {
	a, b := Pipe()

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := b.Read(buf)
		done <- err
	}()

	a.Close()
	b.Close()
	if err := <-done; err == nil {
		t.Fatal("read returned nil after close")
	}
}
