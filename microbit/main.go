// Command microbit is the heart-button firmware for the BBC micro:bit v2.
// Pressing button A renders a heart on the LED matrix; holding it keeps the
// heart lit.
package main

import (
	"context"
	"machine"

	"github.com/sweeney/heart-button/internal/button"
	"github.com/sweeney/heart-button/internal/diag"
	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/irq"
	"github.com/sweeney/heart-button/internal/latch"
	"github.com/sweeney/heart-button/internal/logic"
)

const baudRate = 115200

func main() {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})
	dg := diag.New(uart)
	dg.Println(diag.Hello)

	var rows, cols []display.Line
	for _, p := range rowPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
		rows = append(rows, pinLine{p})
	}
	for _, p := range colPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.High()
		cols = append(cols, pinLine{p})
	}
	driver, err := display.NewDriver(rows, cols, &display.Heart, display.ScanCell)
	if err != nil {
		panic(err)
	}

	btn := machine.BUTTONA
	btn.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	edge := latch.New()
	source := irq.NewShared[irq.Source](&interruptLocker{})
	// No wake register: the interrupt itself ends the wfe.
	handler := irq.NewHandler(source, edge, nil)

	if err := btn.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		handler.Fire()
	}); err != nil {
		panic(err)
	}
	source.Replace(gpioteEvents{})

	loop := logic.NewLoop(logic.Deps{
		Latch:   edge,
		Button:  button.NewMonitor(pinLine{btn}),
		Display: driver,
		Diag:    dg,
		Waiter:  wfe{},
	})
	loop.Run(context.Background())
}
