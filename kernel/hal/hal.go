// Package hal implements the PlatformServices facade: the narrow set of
// board-supplied collaborators (console, timer, interrupt controller) the
// kernel core reaches for instead of importing a concrete driver package,
// plus the mode-stack bootstrap every ARM privileged mode needs before
// interrupts are unmasked.
package hal

import (
	"armkernel/kernel"
	"armkernel/kernel/cpu"
	"armkernel/kernel/kfmt"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/vmm"
	"io"
)

// Console is the CLI-free textual output sink the kernel writes diagnostics
// and panics to. Board integration supplies a concrete implementation (a
// PL011 UART driver on real hardware, a QEMU-backed stand-in under test);
// the kernel core never sees more than this interface.
type Console interface {
	io.Writer
}

// Timer is the platform's periodic tick source. TicksPerSecond reports the
// configured tick rate so kernel/sched can convert between ticks and
// wall-clock milliseconds; Start arms the timer to begin delivering IRQs.
type Timer interface {
	TicksPerSecond() uint32
	Start()
}

// InterruptController abstracts the board's interrupt controller (a PL190
// vectored interrupt controller on Integrator/CP). Drivers and the
// scheduler enable the lines they own and acknowledge each IRQ once
// handled; the controller alone knows which line asserted nIRQ.
type InterruptController interface {
	EnableLine(line uint32)
	DisableLine(line uint32)
	Acknowledge(line uint32)
}

// Scheduler is the narrow slice of kernel/sched's interface the facade
// exposes to board code. It is attached separately from the rest of
// Services via RegisterScheduler, since the scheduler is constructed after
// the console and interrupt controller during boot.
type Scheduler interface {
	CurrentThreadID() uint32
}

// Services is the PlatformServices facade described in spec §6: access to
// the current scheduler, console writer, timer, current CPU id and
// interrupt-control primitives, gathered behind one struct so kernel core
// code takes a single dependency instead of importing board drivers.
type Services struct {
	Console      Console
	Timer        Timer
	Interrupts   InterruptController
	Scheduler    Scheduler
	CurrentCPUID func() uint32
}

var active Services

// Register installs svc as the active PlatformServices and, if svc.Console
// is set, attaches it as kfmt's output sink so every Printf/Panic call
// reaches it from then on. Board integration calls this once during boot
// after probing its devices and before unmasking interrupts. A zero field
// is left unset; code that dereferences it before a later RegisterX call
// fills it in will panic exactly like any other nil interface call, which
// is preferable to silently swallowing a wiring bug.
func Register(svc Services) {
	active = svc
	if svc.Console != nil {
		kfmt.SetOutputSink(svc.Console)
	}
}

// Active returns the currently registered PlatformServices.
func Active() Services { return active }

// RegisterScheduler attaches s to the active Services. Kept separate from
// Register because kernel/sched is constructed after the console and
// interrupt controller, once the page table and idle thread exist.
func RegisterScheduler(s Scheduler) { active.Scheduler = s }

// ARM processor mode numbers (CPSR bits [4:0]) for the privileged modes
// PrepareModeStacks gives their own stack.
const (
	ModeIRQ   uint32 = 0x12
	ModeAbort uint32 = 0x17
	ModeUndef uint32 = 0x1B
	ModeSys   uint32 = 0x1F
)

// modeStackBase is the virtual base spec §6 reserves for mode stacks.
const modeStackBase = mem.VirtualAddress(0xB000_0000)

// modeStackOrder fixes which mode lands at which index under
// modeStackBase; index i's stack sits at modeStackBase + i*PageSize.
var modeStackOrder = [...]uint32{ModeIRQ, ModeAbort, ModeUndef, ModeSys}

// PrepareModeStacks allocates one frame per privileged exception mode, maps
// it at modeStackBase+i*PageSize through pt, and installs the mapped page's
// top as that mode's banked stack pointer via cpu.SetStackForMode. Kmain
// calls this once, after the page table and frame allocator are up and
// before interrupts are unmasked: a data abort or IRQ taken any earlier
// would run atop whatever stack the booting code happened to be using.
func PrepareModeStacks(pt *vmm.PageTable, alloc vmm.FrameAllocator) *kernel.Error {
	for i, mode := range modeStackOrder {
		frame, err := alloc.Allocate(1)
		if err != nil {
			return err
		}

		va := modeStackBase.Add(uintptr(i) * uintptr(mem.PageSize))
		if err := pt.MapSingle(mem.PhysicalAddress(frame.Address()), va); err != nil {
			return err
		}

		// Stacks grow down, so the banked sp starts at the page's end.
		cpu.SetStackForMode(mode, uintptr(va)+uintptr(mem.PageSize))
	}
	return nil
}
