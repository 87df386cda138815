// Package gpio provides digital and analog input lines with hardware abstraction.
// Digital lines come from the Linux GPIO character device ("cdev" backend) or
// from periph.io ("periph" backend). Analog lines come from Linux IIO sysfs.
// The fake implementations allow testing without hardware.
package gpio

import (
	"fmt"
	"strings"
)

// Line is a digital input. Read returns the raw electrical level (true = high).
// Read failures are logged by the implementation, which then repeats the last
// good level.
type Line interface {
	Read() bool
}

// Pull selects the bias applied to an input line.
type Pull string

const (
	PullNone Pull = "none"
	PullUp   Pull = "up"
	PullDown Pull = "down"
)

// ParsePull parses a pull name. The empty string means PullNone.
func ParsePull(s string) (Pull, error) {
	switch Pull(strings.ToLower(strings.TrimSpace(s))) {
	case "", PullNone:
		return PullNone, nil
	case PullUp:
		return PullUp, nil
	case PullDown:
		return PullDown, nil
	}
	return "", fmt.Errorf("unknown pull %q (want up, down or none)", s)
}

// LineSpec identifies a digital input line.
type LineSpec struct {
	// Offset is the line offset on the chip (cdev) or the BCM number (periph).
	Offset int
	// Name overrides the periph pin name; defaults to GPIO<Offset>.
	Name string
	Pull Pull
}

func (s LineSpec) periphName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("GPIO%d", s.Offset)
}

// Bank hands out digital input lines from one backend.
type Bank interface {
	// Input requests a line as an input with the given bias.
	Input(spec LineSpec) (Line, error)

	// Close releases every line handed out by the bank.
	Close() error
}

// Backend names a digital GPIO implementation.
type Backend string

const (
	BackendCdev   Backend = "cdev"
	BackendPeriph Backend = "periph"
)

// DefaultChip is the cdev chip the controller's inputs are wired to.
const DefaultChip = "gpiochip0"

// Open returns a Bank for the named backend. chip is only used by cdev.
func Open(backend Backend, chip string) (Bank, error) {
	switch backend {
	case "", BackendCdev:
		if chip == "" {
			chip = DefaultChip
		}
		b, err := OpenCdev(chip)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendPeriph:
		b, err := OpenPeriph()
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", backend)
}
