package core

import (
	"errors"
	"testing"

	"coilstep/protocol"
)

func TestRegistryAssignsSequentialIDs(t *testing.T) {
	reg := NewCommandRegistry()

	first := reg.Register("alpha", "a=%u", func(data *[]byte) error { return nil })
	second := reg.Register("beta", "", nil)

	if first != 0 || second != 1 {
		t.Fatalf("IDs = %d, %d, want 0, 1", first, second)
	}
}

func TestRegistryIdempotentRegistration(t *testing.T) {
	reg := NewCommandRegistry()

	id := reg.Register("alpha", "a=%u", nil)
	again := reg.Register("alpha", "a=%u", nil)

	if again != id {
		t.Fatalf("re-registration returned %d, want %d", again, id)
	}
	if got, _ := reg.Lookup("alpha"); got != id {
		t.Fatalf("Lookup = %d, want %d", got, id)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewCommandRegistry()

	var gotArg uint32
	id := reg.Register("set_thing", "v=%u", func(data *[]byte) error {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		gotArg = v
		return nil
	})

	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 777)
	payload := out.Result()

	if err := reg.Dispatch(id, &payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotArg != 777 {
		t.Fatalf("handler saw %d, want 777", gotArg)
	}
}

func TestRegistryDispatchUnknown(t *testing.T) {
	reg := NewCommandRegistry()
	data := []byte{}
	if err := reg.Dispatch(99, &data); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Dispatch(99) = %v, want ErrUnknownCommand", err)
	}
}

func TestRegistryDispatchResponseID(t *testing.T) {
	reg := NewCommandRegistry()
	id := reg.Register("some_state", "v=%u", nil)

	data := []byte{}
	if err := reg.Dispatch(id, &data); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("dispatching a response message = %v, want ErrUnknownCommand", err)
	}
}

func TestRegistryEachOrder(t *testing.T) {
	reg := NewCommandRegistry()
	names := []string{"one", "two", "three"}
	for _, n := range names {
		reg.Register(n, "", nil)
	}

	var seen []string
	reg.Each(func(cmd *Command) {
		seen = append(seen, cmd.Name)
	})

	if len(seen) != len(names) {
		t.Fatalf("Each visited %d commands, want %d", len(seen), len(names))
	}
	for i, n := range names {
		if seen[i] != n {
			t.Fatalf("Each order[%d] = %q, want %q", i, seen[i], n)
		}
	}
}

func TestSendResponseWithoutResponder(t *testing.T) {
	prev := responder
	defer SetResponder(prev)
	SetResponder(nil)

	// Must not panic.
	SendResponse("version", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 1)
	})
}
