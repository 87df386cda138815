// Package input conditions raw sensor lines into stable readings.
// Debounced filters binary lines against contact bounce; Smoothed filters
// multi-level lines (dials) against electrical noise.
// This package does no I/O of its own: lines and the clock are injected.
package input

// DigitalLine reads the raw electrical level of a binary line (true = high).
type DigitalLine interface {
	Read() bool
}

// AnalogLine reads one raw ADC sample.
type AnalogLine interface {
	Read() uint16
}
