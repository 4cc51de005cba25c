package core

import (
	"bytes"
	"testing"
)

func newTestDictionary() (*Dictionary, *CommandRegistry) {
	reg := NewCommandRegistry()
	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })
	reg.Register("move_thing", "oid=%c steps=%i", func(data *[]byte) error { return nil })
	reg.Register("thing_state", "oid=%c pos=%i", nil)
	return NewDictionary(reg), reg
}

func TestDictionarySplitsCommandsAndResponses(t *testing.T) {
	dict, _ := newTestDictionary()
	dict.AddConstant("MCU", "testmcu")

	data, err := dict.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	version, commands, responses, constants, err := ParseDictionary(data)
	if err != nil {
		t.Fatalf("ParseDictionary: %v", err)
	}
	if version == "" {
		t.Fatal("dictionary version is empty")
	}
	if id, ok := commands["identify offset=%u count=%c"]; !ok || id != 1 {
		t.Fatalf("identify entry = %d, %v; want 1, true", id, ok)
	}
	if id, ok := commands["move_thing oid=%c steps=%i"]; !ok || id != 2 {
		t.Fatalf("move_thing entry = %d, %v; want 2, true", id, ok)
	}
	if id, ok := responses["identify_response offset=%u data=%*s"]; !ok || id != 0 {
		t.Fatalf("identify_response entry = %d, %v; want 0, true", id, ok)
	}
	if id, ok := responses["thing_state oid=%c pos=%i"]; !ok || id != 3 {
		t.Fatalf("thing_state entry = %d, %v; want 3, true", id, ok)
	}
	if constants["MCU"] != "testmcu" {
		t.Fatalf("MCU constant = %v, want testmcu", constants["MCU"])
	}
}

func TestDictionaryBuildCaches(t *testing.T) {
	dict, _ := newTestDictionary()

	first, err := dict.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, _ := dict.Build()
	if !bytes.Equal(first, second) {
		t.Fatal("cached build differs from first build")
	}

	dict.AddConstant("CLOCK_FREQ", 1000000)
	third, err := dict.Build()
	if err != nil {
		t.Fatalf("Build after AddConstant: %v", err)
	}
	if bytes.Equal(first, third) {
		t.Fatal("AddConstant did not invalidate the cached dictionary")
	}
}

func TestDictionaryChunkedTransfer(t *testing.T) {
	dict, _ := newTestDictionary()
	full, err := dict.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Reassemble the dictionary the way the host does: fixed-size chunks
	// until an empty one.
	var got []byte
	const chunkSize = 40
	for offset := uint32(0); ; {
		chunk := dict.GetChunk(offset, chunkSize)
		if len(chunk) == 0 {
			break
		}
		got = append(got, chunk...)
		offset += uint32(len(chunk))
	}

	if !bytes.Equal(got, full) {
		t.Fatalf("reassembled %d bytes != full %d bytes", len(got), len(full))
	}
}

func TestDictionaryChunkPastEnd(t *testing.T) {
	dict, _ := newTestDictionary()
	full, _ := dict.Build()

	if chunk := dict.GetChunk(uint32(len(full)), 64); chunk != nil {
		t.Fatalf("chunk past end = %d bytes, want nil", len(chunk))
	}
	if chunk := dict.GetChunk(uint32(len(full))+100, 64); chunk != nil {
		t.Fatalf("chunk far past end = %d bytes, want nil", len(chunk))
	}
}
