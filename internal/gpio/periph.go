package gpio

import (
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePoll bounds how long the periph watcher blocks in WaitForEdge before
// checking for Close.
const edgePoll = 500 * time.Millisecond

var (
	_ Board = (*PeriphBoard)(nil)
	_ Board = (*CdevBoard)(nil)
)

// PeriphBoard drives the matrix and reads the button through periph.io's
// host drivers. Pins are looked up by name ("GPIO17").
type PeriphBoard struct {
	rows   []pgpio.PinIO
	cols   []pgpio.PinIO
	button pgpio.PinIO
	edges  edgeChannel

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewPeriphBoard initialises the periph host and configures all pins.
func NewPeriphBoard(pins Pins) (*PeriphBoard, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	b := &PeriphBoard{done: make(chan struct{})}

	for i, n := range pins.Rows {
		p, err := periphOut(n, pgpio.Low)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		b.rows = append(b.rows, p)
	}
	for i, n := range pins.Cols {
		p, err := periphOut(n, pgpio.High)
		if err != nil {
			return nil, fmt.Errorf("col %d: %w", i, err)
		}
		b.cols = append(b.cols, p)
	}

	button := gpioreg.ByName(fmt.Sprintf("GPIO%d", pins.Button))
	if button == nil {
		return nil, fmt.Errorf("button pin GPIO%d not found", pins.Button)
	}
	if err := button.In(pgpio.PullUp, pgpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure button pin GPIO%d: %w", pins.Button, err)
	}
	b.button = button

	return b, nil
}

func periphOut(n int, level pgpio.Level) (pgpio.PinIO, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if p == nil {
		return nil, fmt.Errorf("pin GPIO%d not found", n)
	}
	if err := p.Out(level); err != nil {
		return nil, fmt.Errorf("configure pin GPIO%d: %w", n, err)
	}
	return p, nil
}

type periphOutput struct{ pin pgpio.PinIO }

func (o periphOutput) SetValue(value int) error {
	return o.pin.Out(pgpio.Level(value != Low))
}

type periphInput struct{ pin pgpio.PinIO }

func (i periphInput) Value() (int, error) {
	if i.pin.Read() == pgpio.High {
		return High, nil
	}
	return Low, nil
}

// Rows returns the row lines.
func (b *PeriphBoard) Rows() []Output {
	out := make([]Output, len(b.rows))
	for i, p := range b.rows {
		out[i] = periphOutput{p}
	}
	return out
}

// Cols returns the column lines.
func (b *PeriphBoard) Cols() []Output {
	out := make([]Output, len(b.cols))
	for i, p := range b.cols {
		out[i] = periphOutput{p}
	}
	return out
}

// Button returns the button line.
func (b *PeriphBoard) Button() Input {
	return periphInput{b.button}
}

// WatchButton arms edge delivery and starts the watcher goroutine.
func (b *PeriphBoard) WatchButton(fn func()) (EdgeSource, error) {
	b.edges.arm(fn)
	b.wg.Add(1)
	go b.watch()
	return &b.edges, nil
}

func (b *PeriphBoard) watch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		default:
		}
		if b.button.WaitForEdge(edgePoll) {
			b.edges.deliver()
		}
	}
}

// Close stops the watcher and halts every pin.
func (b *PeriphBoard) Close() error {
	b.once.Do(func() { close(b.done) })
	b.edges.disarm()
	b.wg.Wait()

	var errs []error
	for _, p := range append(append([]pgpio.PinIO{}, b.rows...), b.cols...) {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p.Name(), err))
		}
	}
	if b.button != nil {
		if err := b.button.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt button: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
