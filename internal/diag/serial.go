//go:build !tinygo

package diag

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaud matches the board UART.
const DefaultBaud = 115200

// OpenSerial opens a serial port at baud, 8N1, for diagnostic output.
func OpenSerial(device string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return port, nil
}
