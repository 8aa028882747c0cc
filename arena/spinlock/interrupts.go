package spinlock

import "sync/atomic"

// State is an opaque snapshot of a core's interrupt-enable state.
type State uint64

// InterruptController fetches, disables, and restores the interrupt-enable
// state of the calling core. It is used exclusively by Lock.
type InterruptController interface {
	// Fetch returns the current interrupt-enable state.
	Fetch() State
	// Disable masks interrupts on the calling core.
	Disable()
	// Restore puts back a state previously returned by Fetch.
	Restore(State)
}

// NoInterrupts is the controller for hosted builds, where there is no
// asynchronous preemption to mask.
type NoInterrupts struct{}

func (NoInterrupts) Fetch() State  { return 0 }
func (NoInterrupts) Disable()      {}
func (NoInterrupts) Restore(State) {}

const (
	stateDisabled State = 0
	stateEnabled  State = 1
)

// Simulated models the interrupt flag of a single core. It starts with
// interrupts enabled. It is not meaningful when shared by goroutines that
// hold locks concurrently, since they would all be "the same core".
type Simulated struct {
	disabled atomic.Bool
	disables atomic.Uint64
}

// NewSimulated returns a controller with interrupts enabled.
func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Fetch() State {
	if s.disabled.Load() {
		return stateDisabled
	}
	return stateEnabled
}

func (s *Simulated) Disable() {
	s.disabled.Store(true)
	s.disables.Add(1)
}

func (s *Simulated) Restore(st State) {
	s.disabled.Store(st == stateDisabled)
}

// Enabled reports whether interrupts are currently enabled.
func (s *Simulated) Enabled() bool { return !s.disabled.Load() }

// SetEnabled forces the interrupt flag, as an interrupt-enable or
// interrupt-disable instruction would outside of any lock.
func (s *Simulated) SetEnabled(on bool) { s.disabled.Store(!on) }

// Disables returns how many times Disable has been called.
func (s *Simulated) Disables() uint64 { return s.disables.Load() }

var (
	_ InterruptController = NoInterrupts{}
	_ InterruptController = (*Simulated)(nil)
)
