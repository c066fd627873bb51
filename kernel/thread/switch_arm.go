//go:build arm

package thread

import (
	"armkernel/kernel/cpu"
	"unsafe"
)

// switchContext3 is implemented in switch_arm.s. It pushes the caller's
// callee-saved registers and lr onto currentCtx's stack (skipped when
// currentCtx is nil), swaps sp to newCtx's, pops the incoming thread's
// registers, clears the exclusive monitor, and returns the currentThread
// pointer of the switch that resumed the caller's stack.
func switchContext3(currentCtx, newCtx *Context, currentThread, newThread unsafe.Pointer) unsafe.Pointer

// trampolineAddress returns the link address of newThreadTrampoline, so
// NewThread can plant it as a freshly built stack's saved return address.
func trampolineAddress() uintptr

func trampolineAddr() uintptr { return trampolineAddress() }

// SwitchContext saves the caller's context into current (if non-nil) and
// resumes next. When a later switch resumes current, it returns the thread
// that made that switch -- see the package doc for why that is not
// necessarily next.
func SwitchContext(current, next *Thread) *Thread {
	var currentCtx *Context
	var currentRaw unsafe.Pointer
	if current != nil {
		currentCtx = &current.Ctx
		currentRaw = unsafe.Pointer(current)
	}

	oldRaw := switchContext3(currentCtx, &next.Ctx, currentRaw, unsafe.Pointer(next))
	if oldRaw == nil {
		return nil
	}
	return (*Thread)(oldRaw)
}

// OnThreadStart is invoked by threadEntryTrampoline the first time a
// spawned thread is resumed, before the new thread's Entry is called.
// kernel/sched installs its hook here once at construction time (that hook
// currently has an empty body); thread cannot import sched directly without
// a cycle, so the hand-off happens through this package-level hook instead.
var OnThreadStart func(old, started *Thread)

// threadEntryTrampoline is the landing pad newThreadTrampoline (in
// switch_arm.s) calls into for every thread's first resumption. oldRaw and
// newRaw are the same raw thread pointers switchContext3 was given for the
// switch that just brought this thread up; newRaw is always this thread.
func threadEntryTrampoline(oldRaw, newRaw unsafe.Pointer) {
	if mode := cpu.CPSR() & 0x1f; mode != cpu.ModeSVC {
		panic("threadEntryTrampoline: not running in supervisor mode")
	}

	var old *Thread
	if oldRaw != nil {
		old = (*Thread)(oldRaw)
	}
	self := (*Thread)(newRaw)

	if OnThreadStart != nil {
		OnThreadStart(old, self)
	}
	if self.Entry != nil {
		self.Entry()
	}
	// Entry is expected to end by asking the scheduler to exit this
	// thread, which never returns here; a thread whose Entry does return
	// has nowhere to go, so park it instead of running off the end of
	// the stack.
	for {
		cpu.WaitForInterrupt()
	}
}
