package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/sweeney/heart-button/internal/button"
	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/gpio"
	"github.com/sweeney/heart-button/internal/irq"
	"github.com/sweeney/heart-button/internal/latch"
	"github.com/sweeney/heart-button/internal/logic"
)

// controller wires a board to the foreground loop: the display driver owns
// the matrix lines, the monitor owns the button line, and the button's edge
// source lives in a shared cell touched only by the interrupt handler.
type controller struct {
	driver *display.Driver
	edges  gpio.EdgeSource
	source *irq.Shared[irq.Source]
	loop   *logic.Loop
}

// newController builds the driver, monitor and interrupt path for board and
// starts edge delivery. obs may be nil.
func newController(board gpio.Board, mode display.ScanMode, dg logic.Diagnostics, obs logic.Observer) (*controller, error) {
	driver, err := display.NewDriver(lines(board.Rows()), lines(board.Cols()), &display.Heart, mode)
	if err != nil {
		return nil, fmt.Errorf("init display: %w", err)
	}

	edge := latch.New()
	wake := irq.NewEventRegister()
	source := irq.NewShared[irq.Source](&sync.Mutex{})
	handler := irq.NewHandler(source, edge, wake)

	src, err := board.WatchButton(handler.Fire)
	if err != nil {
		return nil, fmt.Errorf("watch button: %w", err)
	}
	source.Replace(src)

	loop := logic.NewLoop(logic.Deps{
		Latch:    edge,
		Button:   button.NewMonitor(board.Button()),
		Display:  driver,
		Diag:     dg,
		Waiter:   wake,
		Observer: obs,
	})

	return &controller{driver: driver, edges: src, source: source, loop: loop}, nil
}

// Run runs the foreground loop until ctx is done.
func (c *controller) Run(ctx context.Context) error {
	return c.loop.Run(ctx)
}

// Interrupts returns the number of button edges the board has reported.
func (c *controller) Interrupts() uint64 {
	return c.edges.Delivered()
}

// Shutdown detaches the edge source from the handler and blanks the matrix.
// Call it after Run has returned.
func (c *controller) Shutdown() {
	c.source.Take()
	c.driver.Blank()
	if n := c.driver.WriteErrors(); n > 0 {
		log.Printf("display: %d line writes failed since start", n)
	}
}

func lines(outs []gpio.Output) []display.Line {
	ls := make([]display.Line, len(outs))
	for i, o := range outs {
		ls[i] = o
	}
	return ls
}
