package main

import (
	"context"
	"device/arm"
	"device/nrf"
	"machine"
	"runtime/interrupt"
)

var (
	rowPins = [...]machine.Pin{
		machine.LED_ROW_1, machine.LED_ROW_2, machine.LED_ROW_3, machine.LED_ROW_4, machine.LED_ROW_5,
	}
	colPins = [...]machine.Pin{
		machine.LED_COL_1, machine.LED_COL_2, machine.LED_COL_3, machine.LED_COL_4, machine.LED_COL_5,
	}
)

// pinLine adapts a machine.Pin to the display and button line interfaces.
// Pin writes cannot fail on this chip.
type pinLine struct {
	pin machine.Pin
}

func (l pinLine) SetValue(value int) error {
	l.pin.Set(value != 0)
	return nil
}

func (l pinLine) Value() (int, error) {
	if l.pin.Get() {
		return 1, nil
	}
	return 0, nil
}

// interruptLocker is a critical section that masks interrupts. It does not
// nest.
type interruptLocker struct {
	state interrupt.State
}

func (l *interruptLocker) Lock() {
	l.state = interrupt.Disable()
}

func (l *interruptLocker) Unlock() {
	interrupt.Restore(l.state)
}

// gpioteEvents is the GPIOTE peripheral seen as an edge source.
type gpioteEvents struct{}

// ResetEvents clears every GPIOTE input event so the next edge raises the
// interrupt again.
func (gpioteEvents) ResetEvents() {
	for i := range nrf.GPIOTE.EVENTS_IN {
		nrf.GPIOTE.EVENTS_IN[i].Set(0)
	}
}

// wfe sleeps until the next event or interrupt. Any interrupt wakes it, so
// callers re-check their conditions afterwards.
type wfe struct{}

func (wfe) Wait(ctx context.Context) error {
	arm.Asm("wfe")
	return ctx.Err()
}
