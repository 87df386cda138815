// Package clock provides the free-running millisecond counter that all
// timing in the controller is measured against.
// The counter wraps; differences must always go through Since.
package clock

import (
	"sync"
	"time"
)

// Millis is a wrapping millisecond timestamp or duration.
type Millis uint32

// Since returns m - earlier using unsigned arithmetic, which stays correct
// across a single wrap of the counter.
func (m Millis) Since(earlier Millis) Millis {
	return m - earlier
}

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// FromDuration converts d to whole milliseconds. Negative durations become 0.
func FromDuration(d time.Duration) Millis {
	if d <= 0 {
		return 0
	}
	return Millis(d.Milliseconds())
}

// Clock reads the current millisecond counter.
type Clock interface {
	Millis() Millis
}

// System is a Clock backed by the monotonic wall clock.
type System struct {
	start time.Time
}

// NewSystem returns a clock that reads 0 at the moment of the call.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Millis returns milliseconds since construction, truncated to 32 bits.
func (s *System) Millis() Millis {
	return Millis(uint32(time.Since(s.start).Milliseconds()))
}

// Fake is a manually driven Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now Millis
}

// NewFake creates a Fake reading start.
func NewFake(start Millis) *Fake {
	return &Fake{now: start}
}

// Millis returns the current fake time.
func (f *Fake) Millis() Millis {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t Millis) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d milliseconds, wrapping if needed.
func (f *Fake) Advance(d Millis) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}
