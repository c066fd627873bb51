//go:build !arm

package thread

import "sync"

// Hosted builds have no banked sp register to swap, so SwitchContext here
// does not touch Ctx at all (trampolineAddr below is unused, hence 0).
// Instead each Thread gets a long-lived goroutine and a resume channel;
// switching is a channel handoff that blocks the outgoing thread's
// goroutine and wakes the incoming one, reproducing the same external
// contract (SwitchContext blocks until something switches back, and
// returns whoever that was) that kernel/sched relies on without any real
// register-level context switch.
func trampolineAddr() uintptr { return 0 }

type hostedState struct {
	resume  chan *Thread
	started bool
}

var (
	hostedMu     sync.Mutex
	hostedStates = map[*Thread]*hostedState{}
)

func stateFor(t *Thread) *hostedState {
	hostedMu.Lock()
	defer hostedMu.Unlock()
	s, ok := hostedStates[t]
	if !ok {
		s = &hostedState{resume: make(chan *Thread, 1)}
		hostedStates[t] = s
	}
	return s
}

// OnThreadStart mirrors the arm tier's hook of the same name: installed by
// kernel/sched and run before a freshly started thread's Entry is invoked.
var OnThreadStart func(old, started *Thread)

func runHostedThread(t *Thread, state *hostedState) {
	old := <-state.resume
	if OnThreadStart != nil {
		OnThreadStart(old, t)
	}
	if t.Entry != nil {
		t.Entry()
	}
	// Entry is expected to end by asking the scheduler to exit this
	// thread. One that returns instead has nowhere to go; park its
	// goroutine rather than let it fall off and vanish silently.
	select {}
}

// SwitchContext resumes next's goroutine and, if current is non-nil, blocks
// until some later switch resumes current again. It returns the thread that
// made that later switch, or nil immediately when current is nil. Ctx is
// not read or written.
func SwitchContext(current, next *Thread) *Thread {
	if current != nil {
		stateFor(current).started = true
	}

	nextState := stateFor(next)
	if !nextState.started {
		nextState.started = true
		go runHostedThread(next, nextState)
	}

	if current == nil {
		nextState.resume <- nil
		return nil
	}

	currentState := stateFor(current)
	nextState.resume <- current
	return <-currentState.resume
}
