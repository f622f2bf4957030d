package display

import (
	"errors"
	"fmt"
)

// Line is a matrix output line.
type Line interface {
	SetValue(value int) error
}

// Line levels. A cell is lit while its row is high and its column low.
const (
	rowOn  = 1
	rowOff = 0
	colOn  = 0
	colOff = 1
)

// ScanMode selects the order of line writes in a render pass.
type ScanMode string

const (
	// ScanCell pulses each lit cell on its own: row on, column on, row off,
	// column off. This is the reference firmware's scan.
	ScanCell ScanMode = "cell"

	// ScanRow holds a row on while pulsing each of its lit columns, then
	// turns the row off. Fewer row writes per pass; not the reference scan.
	ScanRow ScanMode = "row"
)

// ParseScanMode validates a scan mode name.
func ParseScanMode(s string) (ScanMode, error) {
	switch ScanMode(s) {
	case ScanCell, ScanRow:
		return ScanMode(s), nil
	case "":
		return ScanCell, nil
	}
	return "", fmt.Errorf("unknown scan mode %q", s)
}

// Driver owns the row and column lines and renders a fixed bitmap.
// Not safe for concurrent use.
type Driver struct {
	rows   []Line
	cols   []Line
	bitmap *Bitmap
	mode   ScanMode

	// writeErrs counts ignored line write failures.
	writeErrs int
}

// NewDriver returns a driver for bitmap over exactly Size rows and Size
// columns.
func NewDriver(rows, cols []Line, bitmap *Bitmap, mode ScanMode) (*Driver, error) {
	if len(rows) != Size || len(cols) != Size {
		return nil, fmt.Errorf("need %d rows and %d cols, got %d and %d", Size, Size, len(rows), len(cols))
	}
	if bitmap == nil {
		return nil, errors.New("nil bitmap")
	}
	if mode == "" {
		mode = ScanCell
	}
	return &Driver{rows: rows, cols: cols, bitmap: bitmap, mode: mode}, nil
}

// Mode returns the scan mode.
func (d *Driver) Mode() ScanMode {
	return d.mode
}

// WriteErrors returns the number of line writes that failed and were
// skipped.
func (d *Driver) WriteErrors() int {
	return d.writeErrs
}

// RenderPass performs one multiplexed scan of the bitmap in row-major order
// and returns the number of cells pulsed. Cells valued 0 get no writes.
// Write failures are counted and otherwise ignored; the pass carries on
// with the next write.
//
// Lines are not explicitly returned to their rest level at the end of a
// pass. In ScanCell every pulse ends with its own row-off and column-off
// writes, but a failed write leaves its line where it was until it is next
// touched.
func (d *Driver) RenderPass() int {
	if d.mode == ScanRow {
		return d.renderRows()
	}
	return d.renderCells()
}

func (d *Driver) renderCells() int {
	pulses := 0
	for r, row := range d.rows {
		for c, col := range d.cols {
			if d.bitmap[r][c] != 1 {
				continue
			}
			d.set(row, rowOn)
			d.set(col, colOn)
			d.set(row, rowOff)
			d.set(col, colOff)
			pulses++
		}
	}
	return pulses
}

func (d *Driver) renderRows() int {
	pulses := 0
	for r, row := range d.rows {
		lit := false
		for c, col := range d.cols {
			if d.bitmap[r][c] != 1 {
				continue
			}
			if !lit {
				d.set(row, rowOn)
				lit = true
			}
			d.set(col, colOn)
			d.set(col, colOff)
			pulses++
		}
		if lit {
			d.set(row, rowOff)
		}
	}
	return pulses
}

// Blank drives every line to its rest level. The firmware never does this;
// the daemon calls it once on shutdown.
func (d *Driver) Blank() {
	for _, row := range d.rows {
		d.set(row, rowOff)
	}
	for _, col := range d.cols {
		d.set(col, colOff)
	}
}

func (d *Driver) set(l Line, v int) {
	if err := l.SetValue(v); err != nil {
		d.writeErrs++
	}
}
