package sync

import (
	"armkernel/kernel/cpu"
	"sync/atomic"
)

// CurrentCPUIDFn reports the id of the CPU currently executing. It defers
// to cpu.ID, which always reports 0 on this single-core target; an
// eventual SMP build would replace cpu.ID's hosted/arm implementations
// with a read of a per-core id register, and this would pick that up
// without change. Tests override the var directly to simulate multiple
// CPUs contending for a CpuMutex.
var CurrentCPUIDFn = func() int32 { return int32(cpu.ID()) }

const noOwner int32 = -1

// CpuMutex is a mutual-exclusion lock that also masks interrupts for its
// critical section. On a single-core kernel the only thing that can
// contend for a held lock is an interrupt handler running on the very CPU
// that holds it, so Lock disables interrupts before attempting to take the
// lock and Unlock restores them only after releasing it.
type CpuMutex[T any] struct {
	lock  Spinlock
	owner int32
	data  T
}

// NewCpuMutex constructs a CpuMutex guarding data.
func NewCpuMutex[T any](data T) *CpuMutex[T] {
	return &CpuMutex[T]{owner: noOwner, data: data}
}

// CpuMutexGuard holds a CpuMutex locked until Unlock is called.
type CpuMutexGuard[T any] struct {
	mutex          *CpuMutex[T]
	interruptGuard InterruptGuardOneShot
}

// Lock masks interrupts, blocks until the mutex is free, and returns a
// guard granting access to the protected value.
func (m *CpuMutex[T]) Lock() *CpuMutexGuard[T] {
	guard := NoInterrupts()
	m.obtainLock()
	return &CpuMutexGuard[T]{mutex: m, interruptGuard: guard}
}

func (m *CpuMutex[T]) obtainLock() {
	curCPU := CurrentCPUIDFn()
	if atomic.LoadInt32(&m.owner) == curCPU {
		panic("CpuMutex: double lock by the same CPU")
	}

	cpu.DataMemoryBarrier()
	m.lock.Acquire()
	atomic.StoreInt32(&m.owner, curCPU)
}

func (m *CpuMutex[T]) releaseLock() {
	curCPU := CurrentCPUIDFn()
	if atomic.LoadInt32(&m.owner) != curCPU {
		panic("CpuMutex: unlock by a CPU that does not own the lock")
	}

	atomic.StoreInt32(&m.owner, noOwner)
	cpu.DataMemoryBarrier()
	m.lock.Release()
}

// Data returns a pointer to the guarded value.
func (g *CpuMutexGuard[T]) Data() *T { return &g.mutex.data }

// Unlock releases the mutex and restores interrupts. The order is
// load-bearing: the mutex must be released first, because an interrupt
// handler unblocked by the second step might itself try to take this same
// lock, and must find it already free rather than held by a CPU it can no
// longer distinguish from whatever is now running.
func (g *CpuMutexGuard[T]) Unlock() {
	g.mutex.releaseLock()
	g.interruptGuard.Release()
}

// InterruptGuardOneShot records whether interrupts were enabled at the
// point it was created and restores that state exactly once; a second
// Release is a no-op.
type InterruptGuardOneShot struct {
	wasEnabled bool
	released   bool
}

// NoInterrupts disables interrupts and returns a guard that restores
// whatever the previous mask state was when Release is called.
func NoInterrupts() InterruptGuardOneShot {
	return InterruptGuardOneShot{wasEnabled: cpu.DisableInterrupts()}
}

// Release restores the interrupt mask state captured by NoInterrupts. Safe
// to call more than once; only the first call has any effect.
func (g *InterruptGuardOneShot) Release() {
	if g.released {
		return
	}
	g.released = true
	cpu.RestoreInterrupts(g.wasEnabled)
}
