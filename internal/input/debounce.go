package input

import (
	"time"

	"github.com/sweeney/ambientd/internal/clock"
)

// DefaultDebounce is the settling window for push buttons.
const DefaultDebounce = 50 * time.Millisecond

// DebounceConfig configures a Debounced input.
type DebounceConfig struct {
	// Window is how long the raw level must hold before it is accepted.
	// Zero means DefaultDebounce.
	Window time.Duration
	// ActiveLow inverts the raw level, for lines pulled up and shorted to
	// ground when pressed.
	ActiveLow bool
}

// ButtonDebounce returns the configuration for a pulled-up push button.
func ButtonDebounce() DebounceConfig {
	return DebounceConfig{Window: DefaultDebounce, ActiveLow: true}
}

// Debounced tracks the stable state of a single binary line.
type Debounced struct {
	line      DigitalLine
	clk       clock.Clock
	window    clock.Millis
	activeLow bool

	stable       bool
	pending      bool // last raw reading, already inverted
	pendingSince clock.Millis
}

// NewDebounced creates a debounced input and seeds its state from one read
// of the line, so it never reports a transition for the level it starts at.
func NewDebounced(line DigitalLine, clk clock.Clock, cfg DebounceConfig) *Debounced {
	window := cfg.Window
	if window <= 0 {
		window = DefaultDebounce
	}
	d := &Debounced{
		line:      line,
		clk:       clk,
		window:    clock.FromDuration(window),
		activeLow: cfg.ActiveLow,
	}
	d.stable = d.read()
	d.pending = d.stable
	d.pendingSince = clk.Millis()
	return d
}

func (d *Debounced) read() bool {
	level := d.line.Read()
	if d.activeLow {
		return !level
	}
	return level
}

// Update samples the line and returns true if the stable state changed.
// Should be called once per loop iteration.
func (d *Debounced) Update() bool {
	now := d.clk.Millis()
	reading := d.read()

	if reading != d.pending {
		// Bounce or a real edge; either way the window restarts.
		d.pending = reading
		d.pendingSince = now
	}

	if reading == d.stable {
		return false
	}
	if now.Since(d.pendingSince) < d.window {
		return false
	}

	d.stable = reading
	return true
}

// IsActive returns the last committed state.
func (d *Debounced) IsActive() bool {
	return d.stable
}
