package irq

import (
	"armkernel/kernel/cpu"
	"armkernel/kernel/kfmt"
)

// Handler processes a non-IRQ exception. The default handler installed for
// every vector logs the context and halts; callers may override individual
// vectors with HandleException.
type Handler func(num ExceptionNum, ctx *InterruptContext)

// Callback is implemented by whatever is registered to handle the timer/IRQ
// vector; in production this is the scheduler, driving preemption on every
// tick.
type Callback interface {
	Interrupted(ctx *InterruptContext)
}

// VectorTable holds the Go-level dispatch state behind the eight ARM
// exception vectors. It does not itself live at a fixed address: the
// assembly stubs installed at physical address 0 by Install all funnel into
// the single package-level instance returned by Table.
type VectorTable struct {
	handlers    [8]Handler
	irqCallback Callback
}

var table = &VectorTable{}

func init() {
	for i := range table.handlers {
		table.handlers[i] = defaultHandler
	}
}

// Table returns the package's single vector table instance.
func Table() *VectorTable { return table }

// HandleException installs a custom handler for one of the non-IRQ vectors,
// replacing the default log-and-halt behavior.
func (vt *VectorTable) HandleException(num ExceptionNum, h Handler) {
	vt.handlers[num] = h
}

// SetIRQCallback installs the callback invoked on every IRQ vector entry.
// There is at most one callback; a nil callback makes the IRQ vector a
// no-op, which is the state at boot before the scheduler attaches.
func (vt *VectorTable) SetIRQCallback(cb Callback) {
	vt.irqCallback = cb
}

// dispatch is called by the assembly vector stub for every exception entry.
// It is not exported: on arm its caller is vectorCommon in vector_arm.s,
// which links to it by symbol name; hosted builds reach it through
// SimulateInterrupt.
func dispatch(num ExceptionNum, ctx *InterruptContext) {
	if num == IRQ {
		if table.irqCallback != nil {
			table.irqCallback.Interrupted(ctx)
		}
		return
	}
	table.handlers[num](num, ctx)
}

// defaultHandler implements the fatal-exception behavior: dump context and
// halt. The data-abort vector additionally rewinds pc by 4 to point at the
// faulting instruction, since the prologue's uniform lr-4 adjustment is
// tuned for the common (return-after) case, not an abort.
func defaultHandler(num ExceptionNum, ctx *InterruptContext) {
	if num == DataAbort {
		ctx.PC -= 4
	}
	kfmtPrintException(num, ctx)
	for {
		cpu.WaitForInterrupt()
	}
}

func kfmtPrintException(num ExceptionNum, ctx *InterruptContext) {
	kfmt.Printf("fatal exception: %s\n", num.String())
	ctx.Print()
}
