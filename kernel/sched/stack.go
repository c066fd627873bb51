// Package sched implements a single-CPU, preemptible round-robin
// scheduler: a ready list of kernel.thread.Thread values, a timer-driven
// tick that rotates among them, and the blocking primitives (sleep, block,
// wakeup) built on top.
package sched

import "armkernel/kernel"

// stackAllocator abstracts how a spawned thread's stack memory is obtained
// and reclaimed. Under the hosted test build a working Go heap already
// exists and allocate just returns a slice; on the real target it carves
// fresh pages out of the kernel's own page table (stack_arm.go).
type stackAllocator interface {
	allocate(size int) ([]byte, *kernel.Error)
	free(stack []byte)
}
