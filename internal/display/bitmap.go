// Package display drives the 5x5 LED matrix by time multiplexing: one
// row/column intersection is energised at a time, so the picture only
// persists as long as the caller keeps invoking render passes.
package display

// Size is the matrix dimension in both directions.
const Size = 5

// Bitmap is a Size x Size grid; 1 is lit.
type Bitmap [Size][Size]uint8

// Heart is the picture shown while the button is engaged.
var Heart = Bitmap{
	{0, 1, 0, 1, 0},
	{1, 0, 1, 0, 1},
	{1, 0, 0, 0, 1},
	{0, 1, 0, 1, 0},
	{0, 0, 1, 0, 0},
}

// Lit returns the number of lit cells.
func (b *Bitmap) Lit() int {
	n := 0
	for _, row := range b {
		for _, v := range row {
			if v == 1 {
				n++
			}
		}
	}
	return n
}
