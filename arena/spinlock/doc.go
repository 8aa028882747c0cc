// Package spinlock provides the unfair critical-section lock every arena
// structure is guarded by.
//
// # Overview
//
// A Lock[T] couples a value with an atomic owner flag. Acquiring the lock
// enters a critical section: the caller's InterruptController state is
// fetched, interrupts are disabled, and the caller spins until the flag is
// won. Releasing the lock clears the flag first and only then restores the
// saved interrupt state, so an interrupt arriving between the two steps cannot
// starve other cores of the lock for the length of its handler.
//
// # Fairness
//
// There is none. Waiters spin on a compare-and-swap and whichever core wins
// the race gets the lock; a waiter may be delayed indefinitely under heavy
// contention.
//
// # Caller contract
//
// Code holding a Guard must not panic. There is no unwinding path that
// releases the lock, so a panic inside a critical section leaves the lock held
// and interrupts disabled forever. On hosted builds this is enforced by review
// and tests rather than by the runtime.
//
// # Interrupt controllers
//
// Hosted builds have no interrupts to mask. NoInterrupts is the zero-cost
// controller used by default; Simulated models a single core's interrupt
// flag so tests can assert the exact-restore behavior.
package spinlock
