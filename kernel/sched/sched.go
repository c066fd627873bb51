package sched

import (
	"armkernel/kernel"
	"armkernel/kernel/cpu"
	"armkernel/kernel/hal"
	"armkernel/kernel/irq"
	"armkernel/kernel/kfmt"
	"armkernel/kernel/sync"
	"armkernel/kernel/thread"
)

const (
	idleThreadID thread.ID = 0
	mainThreadID thread.ID = 1
	firstSpawnID thread.ID = 10
)

const defaultStackSize = 2 * 4096

const reaperIntervalMillis = 1000

// schedState is the mutable heart of the scheduler: the ready list, which
// entry is current, and the running clock. It lives behind a CpuMutex
// rather than as plain Scheduler fields so every access goes through the
// same interrupt-safe gate, whether from a public entry point or from the
// timer ISR.
type schedState struct {
	threads    []*thread.Thread
	idle       *thread.Thread
	currentIdx int // index into threads, or -1 while idle (or nothing) runs
	nextID     thread.ID

	timeSinceBootMillis uint64
	reclaim             [][]byte
}

// Scheduler is a single-CPU, preemptible round-robin scheduler. It
// implements hal.Scheduler and irq.Callback, so once constructed it wires
// itself into both the HAL facade and the timer vector.
type Scheduler struct {
	mu             *sync.CpuMutex[schedState]
	stackAlloc     stackAllocator
	ticksPerSecond uint32
}

// New builds a scheduler around the calling thread (which becomes the
// initial, never-exiting "main" thread), spawns the idle and reaper
// threads, and registers itself with the HAL and the IRQ vector table.
// ticksPerSecond must match whatever rate the board's timer interrupt is
// configured to fire at.
func New(stackAlloc stackAllocator, ticksPerSecond uint32) *Scheduler {
	main := thread.NewCurrentThread(mainThreadID)

	idleStack, err := stackAlloc.allocate(defaultStackSize)
	if err != nil {
		kernelPanic(err)
	}
	idle := thread.NewThread(idleThreadID, idleEntry, idleStack)

	s := &Scheduler{
		mu: sync.NewCpuMutex(schedState{
			threads:    []*thread.Thread{main},
			idle:       idle,
			currentIdx: 0,
			nextID:     firstSpawnID,
		}),
		stackAlloc:     stackAlloc,
		ticksPerSecond: ticksPerSecond,
	}

	thread.OnThreadStart = s.onThreadStart
	hal.RegisterScheduler(s)
	irq.Table().SetIRQCallback(s)

	if _, err := s.Spawn(s.reaperLoop); err != nil {
		kernelPanic(err)
	}

	return s
}

func idleEntry() {
	for {
		cpu.WaitForInterrupt()
	}
}

// onThreadStart is thread's hook for post-switch bookkeeping. The Rust
// original this is grounded on asserts the CPU mode and otherwise does
// nothing observable here; Go's garbage collector already owns the
// outgoing thread's lifetime, so there is no ownership handoff left to
// perform. Kept as a named extension point rather than leaving the hook
// var nil, so a future per-thread accounting feature has somewhere to go.
func (s *Scheduler) onThreadStart(old, started *thread.Thread) {}

func kernelPanic(e *kernel.Error) { kfmt.Panic(e) }

// Spawn creates a new ready thread running f and returns its id. f runs to
// completion and then the thread exits on its own; there is no need to
// call ExitThread from f.
func (s *Scheduler) Spawn(f func()) (thread.ID, *kernel.Error) {
	stack, err := s.stackAlloc.allocate(defaultStackSize)
	if err != nil {
		return 0, err
	}

	ig := sync.NoInterrupts()
	defer ig.Release()

	g := s.mu.Lock()
	st := g.Data()
	st.nextID++
	id := st.nextID
	t := thread.NewThread(id, s.spawnEntry(f), stack)
	st.threads = append(st.threads, t)
	g.Unlock()

	return id, nil
}

func (s *Scheduler) spawnEntry(f func()) func() {
	return func() {
		f()
		s.ExitThread()
	}
}

// CurrentThread returns the id of the thread currently running, or the
// idle thread's id if nothing else is ready.
func (s *Scheduler) CurrentThread() thread.ID {
	g := s.mu.Lock()
	defer g.Unlock()
	st := g.Data()
	if st.currentIdx < 0 {
		return st.idle.ID
	}
	return st.threads[st.currentIdx].ID
}

// CurrentThreadID implements hal.Scheduler.
func (s *Scheduler) CurrentThreadID() uint32 { return uint32(s.CurrentThread()) }

// Yield gives up the remainder of the current thread's quantum and picks
// the next ready thread, round robin.
func (s *Scheduler) Yield() {
	ig := sync.NoInterrupts()
	defer ig.Release()
	s.yieldNoIntr()
}

func (s *Scheduler) currentOrIdle(st *schedState) *thread.Thread {
	if st.currentIdx < 0 {
		return st.idle
	}
	return st.threads[st.currentIdx]
}

func (s *Scheduler) yieldNoIntr() {
	g := s.mu.Lock()
	current := s.currentOrIdle(g.Data())
	g.Unlock()

	next := s.scheduleNew()
	if next == current {
		return
	}
	thread.SwitchContext(current, next)
}

// scheduleNew picks the next thread to run: a round-robin scan starting
// just after the current index, waking any thread whose wake time has
// passed, falling back to idle if nothing is ready.
func (s *Scheduler) scheduleNew() *thread.Thread {
	g := s.mu.Lock()
	defer g.Unlock()
	return s.scheduleNewLocked(g.Data())
}

func (s *Scheduler) scheduleNewLocked(st *schedState) *thread.Thread {
	n := len(st.threads)
	idx := st.currentIdx
	for i := 0; i < n; i++ {
		idx++
		if idx == n {
			idx = 0
		}
		t := st.threads[idx]
		if !t.Ready && t.WakeOn != thread.WakeNever && t.WakeOn <= st.timeSinceBootMillis {
			// The original design resets wake_on to 0 ("not sleeping") here.
			// This rework reuses WakeNever for that same meaning instead of
			// a separate 0 sentinel: Block doesn't set WakeOn at all, so a
			// thread that goes ready -> blocked -> ready again only stays
			// blocked until an explicit Wakeup if "ready" already reads as
			// WakeNever, not 0. Using 0 here would make a later Block (with
			// no intervening Sleep) wake itself on the very next tick.
			t.WakeOn = thread.WakeNever
			t.Ready = true
		}
		if t.Ready {
			st.currentIdx = idx
			return t
		}
	}
	st.currentIdx = -1
	return st.idle
}

// Sleep marks the current thread not-ready until at least millis have
// elapsed and yields.
func (s *Scheduler) Sleep(millis uint32) {
	ig := sync.NoInterrupts()
	defer ig.Release()

	g := s.mu.Lock()
	st := g.Data()
	cur := st.threads[st.currentIdx]
	cur.Ready = false
	cur.WakeOn = st.timeSinceBootMillis + uint64(millis)
	g.Unlock()

	s.yieldNoIntr()
}

// Block marks the current thread not-ready indefinitely and yields; only
// a matching Wakeup call makes it ready again.
func (s *Scheduler) Block() {
	ig := sync.NoInterrupts()
	defer ig.Release()
	s.markUnreadyCurrent()
	s.yieldNoIntr()
}

// markUnreadyCurrent takes the current thread out of the ready rotation without
// picking a wake time for it, collapsing what the Rust design this is
// grounded on split into two near-duplicate helpers.
func (s *Scheduler) markUnreadyCurrent() {
	g := s.mu.Lock()
	st := g.Data()
	st.threads[st.currentIdx].Ready = false
	g.Unlock()
}

// Wakeup makes the thread with the given id ready, canceling any pending
// sleep or block. Waking a thread that is already ready, exited, or
// unknown has no effect.
func (s *Scheduler) Wakeup(id thread.ID) {
	ig := sync.NoInterrupts()
	defer ig.Release()

	g := s.mu.Lock()
	st := g.Data()
	for _, t := range st.threads {
		if t.ID == id {
			// See scheduleNewLocked: WakeNever stands in for "not sleeping"
			// here, not just "blocked forever".
			t.WakeOn = thread.WakeNever
			t.Ready = true
			break
		}
	}
	g.Unlock()
}

// ExitThread removes the current thread from the ready list, queues its
// stack for the reaper, and switches away from it for good. It never
// returns to its caller.
func (s *Scheduler) ExitThread() {
	ig := sync.NoInterrupts()
	defer ig.Release()

	g := s.mu.Lock()
	st := g.Data()
	idx := st.currentIdx
	exiting := st.threads[idx]
	st.threads = append(st.threads[:idx], st.threads[idx+1:]...)
	st.currentIdx--
	if stack := exiting.Stack(); stack != nil {
		st.reclaim = append(st.reclaim, stack)
	}
	g.Unlock()

	next := s.scheduleNew()
	thread.SwitchContext(nil, next)
}

// Interrupted implements irq.Callback: it advances the scheduler's clock
// by one tick and rotates to the next ready thread. New registers the
// scheduler as the IRQ callback, so irq's dispatch calls this on every IRQ
// vector entry; interrupts are already masked on vector entry so there is
// no separate interrupt guard here.
func (s *Scheduler) Interrupted(ctx *irq.InterruptContext) {
	g := s.mu.Lock()
	g.Data().timeSinceBootMillis += uint64(1000 / s.ticksPerSecond)
	g.Unlock()

	s.yieldNoIntr()
}

// reaperLoop drains stacks queued by ExitThread and hands them back to the
// stack allocator. It runs as an ordinary low-priority thread rather than
// inside ExitThread itself, since a thread cannot free the very stack it
// is still running on.
func (s *Scheduler) reaperLoop() {
	for {
		s.Sleep(reaperIntervalMillis)

		g := s.mu.Lock()
		st := g.Data()
		pending := st.reclaim
		st.reclaim = nil
		g.Unlock()

		for _, stack := range pending {
			s.stackAlloc.free(stack)
		}
	}
}
