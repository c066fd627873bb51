//go:build arm

package irq

// Install writes the eight-slot ARM vector table and its parallel jump
// table at physical address 0. The boot stub must have identity-mapped
// that page read/write before calling this.
func Install()
