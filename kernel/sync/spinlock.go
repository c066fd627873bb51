// Package sync provides synchronization primitive implementations: spinlocks
// and the interrupt-masking CpuMutex.
package sync

import "sync/atomic"

// yieldFn is called by a contended hosted-build spinlock instead of
// spinning forever. It is nil until SetYieldFn installs a function; while
// it is nil, archAcquireSpinlock just spins.
var yieldFn func()

// SetYieldFn installs f as the function a contended hosted-build spinlock
// calls periodically instead of spinning.
func SetYieldFn(f func()) { yieldFn = f }

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, 1)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// archAcquireSpinlock, the arch-specific implementation for acquiring the
// lock, is defined in spinlock_arm.go and spinlock_hosted.go.
