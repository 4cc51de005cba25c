package protocol

import (
	"bytes"
	"testing"
)

func TestScratchOutputCursor(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{1, 2, 3})

	pos := out.CurPosition()
	if pos != 3 {
		t.Fatalf("CurPosition = %d, want 3", pos)
	}

	out.Output([]byte{4, 5})
	if got := out.DataSince(pos); !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("DataSince(%d) = %v, want [4 5]", pos, got)
	}

	out.Update(0, 0xAA)
	if out.Result()[0] != 0xAA {
		t.Error("Update did not patch byte 0")
	}

	out.Reset()
	if out.CurPosition() != 0 || len(out.Result()) != 0 {
		t.Error("Reset did not clear buffer")
	}
}

func TestSliceInputBuffer(t *testing.T) {
	in := NewSliceInputBuffer([]byte{1, 2, 3, 4})
	if in.Available() != 4 {
		t.Fatalf("Available = %d, want 4", in.Available())
	}
	in.Pop(3)
	if !bytes.Equal(in.Data(), []byte{4}) {
		t.Errorf("Data after Pop(3) = %v, want [4]", in.Data())
	}
	in.Pop(10) // over-pop truncates
	if in.Available() != 0 {
		t.Error("over-pop did not empty buffer")
	}
}

func TestFifoBufferWrap(t *testing.T) {
	f := NewFifoBuffer(8)

	if n := f.Write([]byte{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("Write = %d, want 6", n)
	}
	f.Pop(4)

	// This write wraps around the end of the backing array.
	if n := f.Write([]byte{7, 8, 9, 10}); n != 4 {
		t.Fatalf("wrapping Write = %d, want 4", n)
	}

	want := []byte{5, 6, 7, 8, 9, 10}
	if got := f.Data(); !bytes.Equal(got, want) {
		t.Errorf("Data = %v, want %v", got, want)
	}
	if f.Available() != 6 {
		t.Errorf("Available = %d, want 6", f.Available())
	}
}

func TestFifoBufferFull(t *testing.T) {
	f := NewFifoBuffer(4)
	n := f.Write([]byte{1, 2, 3, 4, 5, 6})
	if n != 4 {
		t.Errorf("Write into full buffer stored %d, want 4", n)
	}
	if !bytes.Equal(f.Data(), []byte{1, 2, 3, 4}) {
		t.Errorf("Data = %v, want [1 2 3 4]", f.Data())
	}
}
