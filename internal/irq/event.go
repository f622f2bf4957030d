package irq

import "context"

// EventRegister is the single-bit wake flag the foreground loop sleeps on
// while idle. Signal sets it; Wait blocks until it is set and clears it.
// A Signal that lands before Wait is not lost, and several Signals before
// one Wait collapse into a single wake.
//
// Wakes carry no source: callers re-check every trigger after Wait returns.
type EventRegister struct {
	ch chan struct{}
}

// NewEventRegister returns a cleared register.
func NewEventRegister() *EventRegister {
	return &EventRegister{ch: make(chan struct{}, 1)}
}

// Signal sets the register. It never blocks and is safe to call from any
// goroutine.
func (r *EventRegister) Signal() {
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the register is set or ctx is done. It returns
// ctx.Err() in the latter case.
func (r *EventRegister) Wait(ctx context.Context) error {
	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
