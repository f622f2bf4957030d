// Package gpio provides the LED matrix and button lines with hardware
// abstraction. The real backends use the Linux GPIO character device
// (go-gpiocdev) or periph.io. The fake implementation allows testing without
// hardware.
package gpio

import (
	"sync/atomic"
)

// Line levels.
const (
	Low  = 0
	High = 1
)

// Rest levels of the matrix lines. A LED is lit only while its row is high
// and its column is low.
const (
	RowOff = Low
	ColOff = High
)

// Output is a digital output line.
type Output interface {
	SetValue(value int) error
}

// Input is a digital input line.
type Input interface {
	Value() (int, error)
}

// EdgeSource is the falling-edge detector bound to the button line.
type EdgeSource interface {
	// ResetEvents acknowledges pending edges so the next one is reported.
	ResetEvents()

	// Delivered returns the number of edges reported since WatchButton.
	Delivered() uint64
}

// Board owns every line the controller uses.
type Board interface {
	// Rows returns the five row lines, top to bottom.
	Rows() []Output

	// Cols returns the five column lines, left to right.
	Cols() []Output

	// Button returns the button input line. The button pulls it low.
	Button() Input

	// WatchButton starts reporting falling edges on the button line.
	// fn runs on the backend's event goroutine, never on the caller's.
	WatchButton(fn func()) (EdgeSource, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins holds line offsets on the GPIO chip (BCM numbering on a Pi).
type Pins struct {
	Rows   [5]int
	Cols   [5]int
	Button int
}

// DefaultPins is the wiring used by the reference Pi build.
var DefaultPins = Pins{
	Rows:   [5]int{5, 6, 13, 19, 26},
	Cols:   [5]int{12, 16, 20, 21, 25},
	Button: 17,
}

// edgeChannel is the shared EdgeSource used by the real backends.
type edgeChannel struct {
	delivered atomic.Uint64
	fn        atomic.Pointer[func()]
}

// ResetEvents is a no-op: both backends dequeue the kernel edge event before
// the handler runs, so no hardware flag is left to clear.
func (e *edgeChannel) ResetEvents() {}

func (e *edgeChannel) Delivered() uint64 {
	return e.delivered.Load()
}

func (e *edgeChannel) arm(fn func()) {
	e.fn.Store(&fn)
}

func (e *edgeChannel) disarm() {
	e.fn.Store(nil)
}

// deliver records an edge and runs the handler, if armed. Edges before arm
// are dropped, like an interrupt that is still masked.
func (e *edgeChannel) deliver() {
	fn := e.fn.Load()
	if fn == nil {
		return
	}
	e.delivered.Add(1)
	(*fn)()
}
