// Package kmain wires together the memory manager, interrupt vectors, HAL
// facade, and scheduler into the sequence the board's boot stub hands
// control to once it has a stack and an identity-mapped scratch page
// table to bootstrap from.
package kmain

import (
	"armkernel/kernel"
	"armkernel/kernel/hal"
	"armkernel/kernel/irq"
	"armkernel/kernel/kfmt"
	"armkernel/kernel/mem"
	"armkernel/kernel/mem/pmm"
	"armkernel/kernel/mem/vmm"
	"armkernel/kernel/sched"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// BootInfo carries everything a board-specific boot stub has already
// established by the time it calls Kmain: the identity-mapped scratch
// L1/L2 pair vmm.Init bootstraps the real page table from, the physical
// frame range left over for the allocator, and the concrete console/timer/
// interrupt-controller drivers for this board.
type BootInfo struct {
	L1Identity, L2Identity mem.VirtualAddress
	Layout                 vmm.MemLayout

	FrameStart, FrameMax uintptr
	Reserved             []pmm.Range

	TicksPerSecond uint32
	Board          hal.Services
}

// Kmain is the first Go code to run on the booted core. It is not expected
// to return: once the scheduler is constructed, control belongs to
// whichever thread the timer tick selects next, and this function's own
// stack is never revisited.
//
//go:noinline
func Kmain(info BootInfo) {
	alloc := pmm.NewBumpAllocator(info.FrameStart, info.FrameMax, info.Reserved)

	pt, err := vmm.Init(info.L1Identity, info.L2Identity, info.Layout, alloc)
	if err != nil {
		kfmt.Panic(err)
	}

	irq.Install()

	if err := hal.PrepareModeStacks(pt, alloc); err != nil {
		kfmt.Panic(err)
	}
	hal.Register(info.Board)

	kfmt.Printf("starting armkernel\n")

	sched.New(sched.NewStackAllocator(pt, alloc), info.TicksPerSecond)

	// sched.New has already registered itself as the IRQ callback; the
	// next timer tick hands control to whatever thread is scheduled and
	// this call never returns.
	kfmt.Panic(errKmainReturned)
}
