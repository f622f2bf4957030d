// Package logic contains the controller's foreground loop.
// It does no I/O of its own: no GPIO, MQTT, OS calls or time.Sleep. Every
// collaborator is injected through the small interfaces below. The only
// internal import is diag, for the text of the idle line.
package logic

import "context"

// Latch is the consumer side of the edge flag.
type Latch interface {
	// TestAndClear returns whether an edge was pending and clears it.
	TestAndClear() bool
}

// Button reports whether the button is held right now.
type Button interface {
	IsEngaged() bool
}

// Display performs one multiplexed render pass and returns the number of
// cells pulsed.
type Display interface {
	RenderPass() int
}

// Diagnostics is the one-way text channel.
type Diagnostics interface {
	Println(line string)
}

// Waiter is the idle-wait primitive. Wait returns on any wake, not only the
// button's, or with an error once ctx is done.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Observer is told about every loop decision. Used for status reporting.
type Observer interface {
	ObservePass(trigger Trigger, pulses int)
	ObserveIdle()
}

// Trigger is what the loop saw when it decided to scan.
type Trigger struct {
	Edge    bool // a latched edge was consumed
	Engaged bool // the button was held
}

// Fired reports whether either condition holds.
func (t Trigger) Fired() bool {
	return t.Edge || t.Engaged
}

// Action is the branch taken by one loop iteration.
type Action string

const (
	ActionScan Action = "SCAN"
	ActionIdle Action = "IDLE"
)

// Result describes one loop iteration.
type Result struct {
	Action  Action
	Trigger Trigger
	Pulses  int
}
