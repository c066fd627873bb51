// Package thread implements the cooperative execution unit the scheduler
// switches between: a saved stack pointer, a small set of scheduling
// fields, and (for spawned threads) the stack memory its first resumption
// lands on.
//
// SwitchContext's assembly primitive receives (current_ctx, new_ctx,
// current_thread_raw, new_thread_raw) and returns old_thread_raw in r0 once
// current_thread is itself resumed: the thread whose switch brought
// current_thread back, which is not necessarily new_thread. Ownership of
// current_thread crosses the stack-pointer swap this way because the
// thread that calls SwitchContext is not, in general, the thread that
// observes its return value -- the caller gives up current; whichever
// thread resumes receives back whatever thread became "the caller" on its
// side of a prior switch.
package thread

import "unsafe"

// ID uniquely identifies a thread within one kernel instance.
type ID uint32

// WakeNever is the wake_on sentinel meaning "blocked indefinitely"; only an
// explicit Wakeup can make such a thread ready again.
const WakeNever = ^uint64(0)

// Context is the only register state a cooperative switch must remember
// explicitly: the stack pointer. Every other register a thread cares about
// already lives on its own stack, saved there by the callee-saved push
// SwitchContext performs before the pointer is swapped.
type Context struct {
	SP uintptr
}

// Thread is one schedulable unit of execution.
type Thread struct {
	ID     ID
	Ctx    Context
	Ready  bool
	WakeOn uint64

	// Entry is the function a spawned thread runs the first time it is
	// switched to. It is nil for the bootstrap ("current") thread and for
	// the idle thread, which runs an architecture intrinsic instead.
	Entry func()

	// stack is the memory NewThread built the initial context on top of.
	// Nil for threads that never allocated one (the bootstrap thread runs
	// on whatever stack the boot stub handed it).
	stack []byte
}

// NewCurrentThread wraps the thread already running when the scheduler is
// constructed. Its Context is only ever switched away from, never into, so
// no stack preamble is needed.
func NewCurrentThread(id ID) *Thread {
	return &Thread{ID: id, Ready: true, WakeOn: WakeNever}
}

// preambleWords is the number of 32-bit slots SwitchContext's assembly
// expects on a freshly built stack: the callee-saved registers r4-r12 (9
// registers) followed by the saved return address (lr), in push order.
const preambleWords = 10

// NewThread builds a thread that starts executing entry the first time it
// is switched to. stack is the memory the thread will run on; it must be
// at least preambleWords*4 bytes and remains referenced by the Thread so
// Deallocate can be called once the thread exits.
func NewThread(id ID, entry func(), stack []byte) *Thread {
	top := (uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))) &^ 7
	sp := top - preambleWords*4

	for i := 0; i < preambleWords-1; i++ {
		storeWord(sp+uintptr(i*4), 0)
	}
	storeWord(sp+uintptr((preambleWords-1)*4), uint32(trampolineAddr()))

	return &Thread{
		ID:     id,
		Ctx:    Context{SP: sp},
		Ready:  true,
		WakeOn: WakeNever,
		Entry:  entry,
		stack:  stack,
	}
}

// Stack returns the memory NewThread allocated this thread's context on
// top of, or nil for a thread that never had one.
func (t *Thread) Stack() []byte { return t.stack }

func storeWord(addr uintptr, val uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = val
}
