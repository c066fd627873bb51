// Package cpu wraps the ARMv6 primitives the rest of the kernel treats as
// opaque intrinsics: barriers, cache/TLB invalidation, the translation-table
// and domain-access-control registers, and mode-banked CPSR access.
//
// The real implementations live in cpu_arm.go/cpu_arm.s and only build for
// GOARCH=arm. cpu_hosted.go supplies software stand-ins with the same
// signatures for every other architecture, so packages that call into cpu
// can be exercised by go test on a development machine.
package cpu

// Processor mode encodings, as stored in the low 5 bits of CPSR/SPSR.
const (
	ModeUSR = 0x10
	ModeFIQ = 0x11
	ModeIRQ = 0x12
	ModeSVC = 0x13
	ModeABT = 0x17
	ModeUND = 0x1B
	ModeSYS = 0x1F
)

// cpuIDFn returns an identifier for the executing core. On this
// single-core target it always returns 0; it is a function-typed var
// rather than a constant so hosted tests can simulate multiple CPUs.
var cpuIDFn = func() int { return 0 }

// ID returns an identifier for the executing core.
func ID() int { return cpuIDFn() }
