//go:build !linux

package gpio

import "errors"

// CdevBank is not available on non-Linux platforms.
type CdevBank struct{}

// OpenCdev returns an error on non-Linux platforms.
func OpenCdev(chip string) (*CdevBank, error) {
	return nil, errors.New("gpio: cdev backend not supported on this platform (requires Linux)")
}

// Input is not implemented on non-Linux platforms.
func (b *CdevBank) Input(spec LineSpec) (Line, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *CdevBank) Close() error {
	return nil
}
