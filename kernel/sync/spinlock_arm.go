//go:build arm

package sync

import "sync/atomic"

// archAcquireSpinlock busy-waits until it can swap state from 0 to 1. There
// is no ARMv6 YIELD hint to spin on (that arrived in ARMv7) and no second
// core to share the bus with on this target, so attemptsBeforeYielding is
// accepted only for interface parity with the hosted build and otherwise
// unused.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	for !atomic.CompareAndSwapUint32(state, 0, 1) {
	}
}
