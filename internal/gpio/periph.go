package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphBank reads lines through periph.io's pin registry. Useful on boards
// where the character device is unavailable or pins are known by name.
type PeriphBank struct {
	pins []pgpio.PinIO
}

// OpenPeriph initialises periph host drivers. host.Init is idempotent.
func OpenPeriph() (*PeriphBank, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &PeriphBank{}, nil
}

func periphPull(p Pull) pgpio.Pull {
	switch p {
	case PullUp:
		return pgpio.PullUp
	case PullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}

// Input looks the pin up by name (GPIO<Offset> unless spec.Name is set) and
// configures it as an input without edge detection.
func (b *PeriphBank) Input(spec LineSpec) (Line, error) {
	name := spec.periphName()
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found", name)
	}
	if err := p.In(periphPull(spec.Pull), pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure pin %s: %w", name, err)
	}
	b.pins = append(b.pins, p)
	return periphLine{pin: p}, nil
}

// Close returns every pin to a pulled-down input.
func (b *PeriphBank) Close() error {
	var errs []error
	for _, p := range b.pins {
		if err := p.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("reset pin %s: %w", p.Name(), err))
		}
	}
	b.pins = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type periphLine struct {
	pin pgpio.PinIn
}

func (l periphLine) Read() bool {
	return l.pin.Read() == pgpio.High
}
