// Package occupancy answers "is anyone in this zone" from a motion sensor,
// holding the zone occupied for a cooldown after each trigger.
package occupancy

import (
	"time"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/input"
)

// Defaults for PIR motion sensors.
const (
	DefaultCooldown = 4000 * time.Millisecond
	DefaultDebounce = 20 * time.Millisecond
)

// Zone wraps one debounced motion sensor.
type Zone struct {
	name     string
	enabled  bool
	sensor   *input.Debounced
	clk      clock.Clock
	cooldown clock.Millis

	lastTriggered clock.Millis
	triggered     bool // lastTriggered is meaningful
}

// New creates an enabled zone around sensor. A zero cooldown means
// DefaultCooldown.
func New(name string, sensor *input.Debounced, clk clock.Clock, cooldown time.Duration) *Zone {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Zone{
		name:     name,
		enabled:  true,
		sensor:   sensor,
		clk:      clk,
		cooldown: clock.FromDuration(cooldown),
	}
}

// Disabled returns a zone with no sensor behind it. It is never occupied.
func Disabled(name string) *Zone {
	return &Zone{name: name}
}

// Name returns the zone's configured name.
func (z *Zone) Name() string {
	return z.name
}

// Enabled reports whether the zone has a sensor.
func (z *Zone) Enabled() bool {
	return z.enabled
}

// Update samples the sensor and returns true on a new trigger (a rising
// debounced edge).
func (z *Zone) Update() bool {
	if !z.enabled {
		return false
	}
	if !z.sensor.Update() || !z.sensor.IsActive() {
		return false
	}
	z.lastTriggered = z.clk.Millis()
	z.triggered = true
	return true
}

// IsOccupied updates the sensor and reports whether it is active or was
// triggered less than a cooldown ago.
func (z *Zone) IsOccupied() bool {
	if !z.enabled {
		return false
	}
	if z.Update() {
		return true
	}
	if z.sensor.IsActive() {
		return true
	}
	return z.triggered && z.clk.Millis().Since(z.lastTriggered) < z.cooldown
}

// LastTriggered returns when the sensor last triggered, and false if it
// never has.
func (z *Zone) LastTriggered() (clock.Millis, bool) {
	return z.lastTriggered, z.triggered
}
