// Package irq models the pieces of the controller that cross between the
// foreground loop and the button interrupt: the critical section guarding the
// edge-detect hardware handle, the interrupt handler itself, and the event
// register the foreground loop waits on while idle.
//
// On the Linux daemon the "interrupt" is the GPIO backend's edge-event
// goroutine and the critical section is a mutex. The TinyGo build supplies a
// Locker that disables interrupts instead.
package irq

import "sync"

// Free runs fn inside the critical section provided by l and always leaves
// it, even if fn panics. Critical sections do not nest.
func Free(l sync.Locker, fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}

// Shared is a process-wide cell holding a value that is installed once from
// the foreground context and then used from interrupt context. The value is
// only reachable inside the critical section.
type Shared[T any] struct {
	cs    sync.Locker
	v     T
	valid bool
}

// NewShared returns an empty cell guarded by cs.
func NewShared[T any](cs sync.Locker) *Shared[T] {
	return &Shared[T]{cs: cs}
}

// Replace installs v and returns the previous value, if any.
func (s *Shared[T]) Replace(v T) (old T, ok bool) {
	Free(s.cs, func() {
		old, ok = s.v, s.valid
		s.v, s.valid = v, true
	})
	return old, ok
}

// Take removes and returns the installed value.
func (s *Shared[T]) Take() (v T, ok bool) {
	Free(s.cs, func() {
		v, ok = s.v, s.valid
		var zero T
		s.v, s.valid = zero, false
	})
	return v, ok
}

// With calls fn with the installed value inside the critical section. It
// reports false without calling fn when nothing is installed. fn must not
// retain v.
func (s *Shared[T]) With(fn func(v T)) bool {
	var ran bool
	Free(s.cs, func() {
		if !s.valid {
			return
		}
		fn(s.v)
		ran = true
	})
	return ran
}
