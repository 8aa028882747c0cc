package spinlock

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds busy spinning before the waiter yields its
// processor. Goroutines are not pinned to cores, so a waiter that never
// yields can spin against a holder that is not running.
const spinsBeforeYield = 64

// Lock is an unfair spinlock that enters a critical section while held.
// The zero value is an unlocked lock holding the zero T.
type Lock[T any] struct {
	owned atomic.Bool
	value T
}

// New returns a lock guarding value.
func New[T any](value T) *Lock[T] {
	return &Lock[T]{value: value}
}

// Guard is a held Lock. It must be released with Unlock exactly once.
type Guard[T any] struct {
	lock  *Lock[T]
	ic    InterruptController
	state State
}

// Lock enters a critical section on ic and spins until the lock is acquired.
func (l *Lock[T]) Lock(ic InterruptController) Guard[T] {
	state := ic.Fetch()
	ic.Disable()

	for spins := 0; ; spins++ {
		if l.owned.CompareAndSwap(false, true) {
			return Guard[T]{lock: l, ic: ic, state: state}
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires the lock if it is free. On failure the interrupt state is
// restored and ok is false.
func (l *Lock[T]) TryLock(ic InterruptController) (Guard[T], bool) {
	state := ic.Fetch()
	ic.Disable()
	if !l.owned.CompareAndSwap(false, true) {
		ic.Restore(state)
		return Guard[T]{}, false
	}
	return Guard[T]{lock: l, ic: ic, state: state}, true
}

// With runs fn inside the critical section.
func (l *Lock[T]) With(ic InterruptController, fn func(*T)) {
	g := l.Lock(ic)
	fn(g.Value())
	g.Unlock()
}

// Locked reports whether the lock is currently held. Only useful for
// assertions; the answer may be stale by the time it is read.
func (l *Lock[T]) Locked() bool { return l.owned.Load() }

// Reset replaces the guarded value without locking. The caller must have
// exclusive access to l, for example a registry slot nobody holds a handle to.
func (l *Lock[T]) Reset(value T) {
	if l.owned.Load() {
		panic("spinlock: reset of a held lock")
	}
	l.value = value
}

// Take returns the guarded value and leaves the zero T in its place, under
// the same exclusivity contract as Reset.
func (l *Lock[T]) Take() T {
	if l.owned.Load() {
		panic("spinlock: take from a held lock")
	}
	v := l.value
	var zero T
	l.value = zero
	return v
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g Guard[T]) Value() *T { return &g.lock.value }

// Unlock releases the lock and then restores the interrupt state that was
// current when the lock was requested. The order matters: restoring first
// would let an interrupt handler run while other cores still see the lock
// held.
func (g Guard[T]) Unlock() {
	g.lock.owned.Store(false)
	g.ic.Restore(g.state)
}
