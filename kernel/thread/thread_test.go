package thread

import (
	"testing"
	"unsafe"
)

func TestNewCurrentThreadHasNoStackAndIsReady(t *testing.T) {
	th := NewCurrentThread(1)
	if !th.Ready {
		t.Fatal("expected a current thread to start ready")
	}
	if th.WakeOn != WakeNever {
		t.Fatalf("expected WakeOn == WakeNever, got %d", th.WakeOn)
	}
	if th.Stack() != nil {
		t.Fatal("expected a current thread to have no owned stack")
	}
}

func TestNewThreadPlantsZeroedCalleeSavedPreamble(t *testing.T) {
	stack := make([]byte, 256)
	entryCalled := false
	th := NewThread(2, func() { entryCalled = true }, stack)

	if th.Entry == nil {
		t.Fatal("expected Entry to be retained")
	}
	th.Entry()
	if !entryCalled {
		t.Fatal("expected stored Entry to be callable")
	}

	sp := uintptr(th.Ctx.SP)
	top := (uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))) &^ 7
	if sp != top-preambleWords*4 {
		t.Fatalf("expected sp == top-%d, got sp=%#x top=%#x", preambleWords*4, sp, top)
	}
	if sp%8 != 0 {
		t.Fatalf("expected 8-byte aligned sp, got %#x", sp)
	}

	for i := 0; i < preambleWords-1; i++ {
		word := *(*uint32)(unsafe.Pointer(sp + uintptr(i*4)))
		if word != 0 {
			t.Fatalf("expected callee-saved slot %d to be zeroed, got %#x", i, word)
		}
	}
}

func TestNewThreadIsReadyWithWakeOnNever(t *testing.T) {
	th := NewThread(3, func() {}, make([]byte, 256))
	if !th.Ready {
		t.Fatal("expected a freshly spawned thread to start ready")
	}
	if th.WakeOn != WakeNever {
		t.Fatalf("expected WakeOn == WakeNever, got %d", th.WakeOn)
	}
}
