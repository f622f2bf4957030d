//go:build !linux

package gpio

import "errors"

// CdevBoard is not available on non-Linux platforms.
type CdevBoard struct{}

// NewCdevBoard returns an error on non-Linux platforms.
func NewCdevBoard(chipName string, pins Pins) (*CdevBoard, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

func (b *CdevBoard) Rows() []Output { return nil }
func (b *CdevBoard) Cols() []Output { return nil }
func (b *CdevBoard) Button() Input  { return nil }

// WatchButton is not implemented on non-Linux platforms.
func (b *CdevBoard) WatchButton(fn func()) (EdgeSource, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *CdevBoard) Close() error {
	return nil
}
