package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// FakeDigital is a test double for a digital line whose level is set by the test.
type FakeDigital struct {
	mu    sync.Mutex
	level bool

	// Reads counts calls to Read.
	Reads int
}

// NewFakeDigital creates a FakeDigital at the given level.
func NewFakeDigital(level bool) *FakeDigital {
	return &FakeDigital{level: level}
}

// Read returns the current level.
func (f *FakeDigital) Read() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	return f.level
}

// Set changes the level seen by subsequent reads.
func (f *FakeDigital) Set(level bool) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// FakeAnalog is a test double that returns scripted ADC samples.
type FakeAnalog struct {
	mu sync.Mutex

	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []uint16

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int
}

// NewFakeAnalog creates a FakeAnalog with the given samples.
func NewFakeAnalog(samples ...uint16) *FakeAnalog {
	return &FakeAnalog{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
// With no samples configured it reads 0.
func (f *FakeAnalog) Read() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++

	if len(f.Samples) == 0 {
		return 0
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample
}

// Set replaces the script with a single constant value.
func (f *FakeAnalog) Set(v uint16) {
	f.mu.Lock()
	f.Samples = []uint16{v}
	f.index = 0
	f.mu.Unlock()
}

// Reset resets the reader to the beginning of samples.
func (f *FakeAnalog) Reset() {
	f.mu.Lock()
	f.index = 0
	f.mu.Unlock()
}

// FakeBank hands out FakeDigital lines keyed by offset.
type FakeBank struct {
	// Lines holds every line requested so far.
	Lines map[int]*FakeDigital

	// Specs records each request in order.
	Specs []LineSpec

	// InputError, if set, will be returned by Input.
	InputError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeBank creates an empty FakeBank.
func NewFakeBank() *FakeBank {
	return &FakeBank{Lines: make(map[int]*FakeDigital)}
}

// Input returns the fake line for spec.Offset, creating it at the level a
// pulled line would idle at.
func (b *FakeBank) Input(spec LineSpec) (Line, error) {
	if b.InputError != nil {
		return nil, b.InputError
	}
	if b.Closed {
		return nil, errors.New("bank closed")
	}
	if _, dup := b.Lines[spec.Offset]; dup {
		return nil, fmt.Errorf("line %d already requested", spec.Offset)
	}
	l := NewFakeDigital(spec.Pull == PullUp)
	b.Lines[spec.Offset] = l
	b.Specs = append(b.Specs, spec)
	return l, nil
}

// Close marks the bank as closed.
func (b *FakeBank) Close() error {
	b.Closed = true
	return nil
}
