//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "heart-button"

// CdevBoard drives the matrix and reads the button through the Linux GPIO
// character device.
type CdevBoard struct {
	chip   *gpiocdev.Chip
	rows   []*gpiocdev.Line
	cols   []*gpiocdev.Line
	button *gpiocdev.Line
	edges  edgeChannel
}

// NewCdevBoard requests all lines on the named chip. Rows start low and
// columns high so the matrix is dark. The button is an input with pull-up
// and falling-edge detection.
func NewCdevBoard(chipName string, pins Pins) (*CdevBoard, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &CdevBoard{chip: chip}

	for i, offset := range pins.Rows {
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(RowOff))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request row %d pin %d: %w", i, offset, err)
		}
		b.rows = append(b.rows, l)
	}

	for i, offset := range pins.Cols {
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(ColOff))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request col %d pin %d: %w", i, offset, err)
		}
		b.cols = append(b.cols, l)
	}

	button, err := chip.RequestLine(pins.Button,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(b.onEvent))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}
	b.button = button

	return b, nil
}

func (b *CdevBoard) onEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	b.edges.deliver()
}

// Rows returns the row lines.
func (b *CdevBoard) Rows() []Output {
	out := make([]Output, len(b.rows))
	for i, l := range b.rows {
		out[i] = l
	}
	return out
}

// Cols returns the column lines.
func (b *CdevBoard) Cols() []Output {
	out := make([]Output, len(b.cols))
	for i, l := range b.cols {
		out[i] = l
	}
	return out
}

// Button returns the button line.
func (b *CdevBoard) Button() Input {
	return b.button
}

// WatchButton arms edge delivery. The kernel watcher goroutine calls fn.
func (b *CdevBoard) WatchButton(fn func()) (EdgeSource, error) {
	if b.button == nil {
		return nil, fmt.Errorf("button line not requested")
	}
	b.edges.arm(fn)
	return &b.edges, nil
}

// Close releases GPIO resources.
// Outputs are returned to inputs before closing so the matrix is not left
// driven after the daemon exits.
func (b *CdevBoard) Close() error {
	var errs []error

	b.edges.disarm()
	if b.button != nil {
		if err := b.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	for _, l := range append(b.rows, b.cols...) {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure matrix pin: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close matrix pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
