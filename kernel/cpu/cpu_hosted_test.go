//go:build !arm

package cpu

import "testing"

func TestInterruptMaskRoundTrip(t *testing.T) {
	EnableInterrupts()
	if CPSR()&(1<<7) != 0 {
		t.Fatal("expected IRQ mask bit clear after EnableInterrupts")
	}

	wasEnabled := DisableInterrupts()
	if !wasEnabled {
		t.Error("expected DisableInterrupts to report interrupts were previously enabled")
	}
	if CPSR()&(1<<7) == 0 {
		t.Error("expected IRQ mask bit set after DisableInterrupts")
	}

	wasEnabled = DisableInterrupts()
	if wasEnabled {
		t.Error("expected DisableInterrupts to report interrupts were already disabled")
	}

	RestoreInterrupts(true)
	if CPSR()&(1<<7) != 0 {
		t.Error("expected RestoreInterrupts(true) to clear the IRQ mask bit")
	}
}

func TestTTBR0RoundTrip(t *testing.T) {
	SetTTBR0(0x4000)
	if got := ActiveTTBR0(); got != 0x4000 {
		t.Errorf("expected ActiveTTBR0() to return 0x4000; got %x", got)
	}
}

func TestSetStackForMode(t *testing.T) {
	SetStackForMode(ModeIRQ, 0xb000_1000)
	if got := hostedModeStacks[ModeIRQ&0x1f]; got != 0xb000_1000 {
		t.Errorf("expected IRQ mode stack to be recorded; got %x", got)
	}
}
