package logic

import (
	"context"

	"github.com/sweeney/heart-button/internal/diag"
)

// Loop is the foreground control loop. Each iteration decides afresh
// between one render pass and an idle wait; nothing carries over between
// iterations. Not safe for concurrent use.
type Loop struct {
	latch    Latch
	button   Button
	display  Display
	diag     Diagnostics
	waiter   Waiter
	observer Observer
}

// Deps are the Loop's collaborators. Observer may be nil.
type Deps struct {
	Latch    Latch
	Button   Button
	Display  Display
	Diag     Diagnostics
	Waiter   Waiter
	Observer Observer
}

// NewLoop creates a loop over deps.
func NewLoop(deps Deps) *Loop {
	return &Loop{
		latch:    deps.Latch,
		button:   deps.Button,
		display:  deps.Display,
		diag:     deps.Diag,
		waiter:   deps.Waiter,
		observer: deps.Observer,
	}
}

// Step runs one iteration. The button is sampled and the latch consumed on
// every iteration, so a pending edge is cleared even while the button is
// held. If either is set, one render pass runs and Step returns at once.
// Otherwise it emits the idle notice and waits for any wake.
//
// The only error is ctx's, returned from the idle wait.
func (l *Loop) Step(ctx context.Context) (Result, error) {
	engaged := l.button.IsEngaged()
	edge := l.latch.TestAndClear()
	trig := Trigger{Edge: edge, Engaged: engaged}

	if trig.Fired() {
		pulses := l.display.RenderPass()
		if l.observer != nil {
			l.observer.ObservePass(trig, pulses)
		}
		return Result{Action: ActionScan, Trigger: trig, Pulses: pulses}, nil
	}

	l.diag.Println(diag.WaitForEvent)
	if l.observer != nil {
		l.observer.ObserveIdle()
	}
	if err := l.waiter.Wait(ctx); err != nil {
		return Result{Action: ActionIdle, Trigger: trig}, err
	}
	return Result{Action: ActionIdle, Trigger: trig}, nil
}

// Run steps until ctx is done. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if _, err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
