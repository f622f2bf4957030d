// Package latch provides the edge flag shared between the button interrupt
// and the foreground loop.
package latch

import "sync/atomic"

// Edge records that a button edge happened and has not been consumed yet.
// The zero value is ready to use (no edge pending).
//
// Set is called from interrupt context only; TestAndClear from the single
// foreground loop only. Neither blocks.
type Edge struct {
	pending atomic.Bool
}

// New returns an Edge with no edge pending.
func New() *Edge {
	return &Edge{}
}

// Set marks an edge as pending. Setting an already pending edge is a no-op.
func (e *Edge) Set() {
	e.pending.Store(true)
}

// TestAndClear returns whether an edge was pending and clears it in the
// same atomic step, so each Set is observed by at most one caller.
func (e *Edge) TestAndClear() bool {
	return e.pending.CompareAndSwap(true, false)
}

// Pending reports the flag without consuming it.
func (e *Edge) Pending() bool {
	return e.pending.Load()
}
