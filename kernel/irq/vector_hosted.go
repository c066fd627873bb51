//go:build !arm

package irq

// Install is a no-op on hosted builds: there is no physical address 0 to
// write a vector table into. Hosted code drives dispatch through
// SimulateInterrupt, and this package's tests call dispatch directly.
func Install() {}

// SimulateInterrupt drives the same dispatch path the real vector
// trampolines call into, letting hosted tests exercise handler
// registration and the default fatal-exception behavior without hardware.
func SimulateInterrupt(num ExceptionNum, ctx *InterruptContext) {
	dispatch(num, ctx)
}
