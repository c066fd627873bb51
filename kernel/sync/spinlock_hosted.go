//go:build !arm

package sync

import "sync/atomic"

// archAcquireSpinlock busy-waits for attemptsBeforeYielding iterations and
// then calls yieldFn, so a hosted build under go test does not starve the
// Go runtime's own goroutine scheduler while a lock is contended by
// multiple goroutines standing in for separate CPUs.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	var attempts uint32
	for !atomic.CompareAndSwapUint32(state, 0, 1) {
		attempts++
		if attempts >= attemptsBeforeYielding && yieldFn != nil {
			yieldFn()
			attempts = 0
		}
	}
}
