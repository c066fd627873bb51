package cpu

// This file declares the ARMv6 primitives the rest of the kernel treats as
// opaque intrinsics. Each function is implemented in cpu_arm.s; the bodyless
// declarations here exist only so the package has something to document.

// DataMemoryBarrier (DMB) ensures that all explicit memory accesses before
// it are observed before any explicit memory access after it.
func DataMemoryBarrier()

// DataSynchronizationBarrier (DSB) blocks until all explicit memory accesses
// before it have completed.
func DataSynchronizationBarrier()

// InvalidateCaches invalidates the data and instruction caches.
func InvalidateCaches()

// InvalidateTLB invalidates the entire TLB.
func InvalidateTLB()

// FlushTLBEntry invalidates the single TLB entry covering virtAddr.
func FlushTLBEntry(virtAddr uintptr)

// SetTTBR0 programs the translation table base register with the physical
// address of an L1 table. The address must be 16KiB aligned.
func SetTTBR0(l1PhysAddr uintptr)

// ActiveTTBR0 returns the physical address currently programmed into TTBR0.
func ActiveTTBR0() uintptr

// WriteDomainAccessControlRegister programs the DACR. A value of 1 for a
// domain's two-bit field selects client mode (access checked against the
// page table's AP bits); 0b11 selects manager mode (no access check).
func WriteDomainAccessControlRegister(value uint32)

// CPSR returns the current program status register.
func CPSR() uint32

// ClearExclusive executes CLREX, clearing the local monitor used by
// load/store-exclusive sequences. Used when switching stacks so a stale
// exclusive reservation from the outgoing thread cannot satisfy a
// store-exclusive on the incoming one.
func ClearExclusive()

// WaitForInterrupt executes WFI, suspending execution until the next
// interrupt. Used by the idle thread.
func WaitForInterrupt()

// EnableInterrupts unmasks IRQs in CPSR.
func EnableInterrupts()

// DisableInterrupts masks IRQs in CPSR and returns the previous mask state
// so callers can restore it rather than unconditionally re-enabling.
func DisableInterrupts() (wasEnabled bool)

// RestoreInterrupts sets the IRQ mask bit in CPSR back to the state
// captured by a prior DisableInterrupts call.
func RestoreInterrupts(wasEnabled bool)

// Halt disables interrupts and spins on WaitForInterrupt forever. Used as
// the terminal action of a fatal kernel panic; it never returns.
func Halt()

// SetStackForMode installs sp as the banked stack pointer for mode. It
// switches into mode with interrupts masked, writes R13, then restores the
// calling mode. Used once during boot to give the exception modes their own
// stacks so a data abort or IRQ does not run atop whatever stack the
// interrupted thread happened to be using.
func SetStackForMode(mode uint32, sp uintptr)
