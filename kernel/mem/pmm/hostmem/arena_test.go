package hostmem

import "testing"

func TestArenaReadWrite(t *testing.T) {
	a, err := NewArena(4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if a.Len() < 4096 {
		t.Fatalf("expected arena to be at least 4096 bytes; got %d", a.Len())
	}

	*a.At(10) = 0x42
	if got := *a.At(10); got != 0x42 {
		t.Errorf("expected byte at offset 10 to be 0x42; got %x", got)
	}

	s := a.Slice(0, 16)
	if len(s) != 16 {
		t.Errorf("expected slice of length 16; got %d", len(s))
	}
}
