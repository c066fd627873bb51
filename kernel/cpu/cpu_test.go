package cpu

import "testing"

func TestID(t *testing.T) {
	defer func() { cpuIDFn = func() int { return 0 } }()

	cpuIDFn = func() int { return 3 }
	if got := ID(); got != 3 {
		t.Errorf("expected ID() to return 3; got %d", got)
	}
}
