// Package controller owns the operating mode: manual selection, cycling,
// the autonomous doze/sleep timeline driven by motion, and dial gestures.
// Like the inputs it composes, it does no I/O and takes time from a
// clock.Clock, so every transition is reproducible in tests.
package controller

import (
	"time"

	"github.com/sweeney/ambientd/internal/clock"
)

// Channel indexes the four dials.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
	White

	NumChannels = 4
)

// NumZones is the number of motion zones the controller watches.
const NumZones = 3

// String returns the lower-case channel name.
func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case White:
		return "white"
	default:
		return "unknown"
	}
}

// Defaults for Config.
const (
	DefaultWakeToDoze    = 10 * time.Minute
	DefaultDozeToSleep   = 30 * time.Second
	DefaultMaxCyclable   = ModeCustom6
	DefaultWakeThreshold = 0.2
	DefaultGrabThreshold = 0.5

	// maxWindow keeps wake+doze well inside the 32-bit millisecond counter.
	maxWindow = 7 * 24 * time.Hour
)

// Config holds the controller's timing and gesture thresholds.
// Thresholds are dial speeds in full-scale units per second.
type Config struct {
	WakeToDoze    time.Duration
	DozeToSleep   time.Duration
	MaxCyclable   Mode
	WakeThreshold float64
	GrabThreshold float64
}

func (c Config) withDefaults() Config {
	if c.WakeToDoze <= 0 {
		c.WakeToDoze = DefaultWakeToDoze
	}
	if c.WakeToDoze > maxWindow {
		c.WakeToDoze = maxWindow
	}
	if c.DozeToSleep <= 0 {
		c.DozeToSleep = DefaultDozeToSleep
	}
	if c.DozeToSleep > maxWindow {
		c.DozeToSleep = maxWindow
	}
	if !c.MaxCyclable.Valid() {
		c.MaxCyclable = DefaultMaxCyclable
	}
	if !c.MaxCyclable.After(ModeSleepPrep) {
		// Cycling must reach at least one lit mode.
		c.MaxCyclable = ModeRGB
	}
	if c.WakeThreshold <= 0 {
		c.WakeThreshold = DefaultWakeThreshold
	}
	if c.GrabThreshold <= 0 {
		c.GrabThreshold = DefaultGrabThreshold
	}
	if c.GrabThreshold < c.WakeThreshold {
		c.GrabThreshold = c.WakeThreshold
	}
	return c
}

// Counts tracks mode transitions by cause since startup.
type Counts struct {
	Manual  int
	Cycles  int
	Dozes   int
	Sleeps  int
	Resumes int
	Grabs   int
}

// Frame is what one control iteration hands to the renderer.
type Frame struct {
	At       clock.Millis
	Mode     Mode
	Previous Mode
	// Changed is true on the first frame after any mode entry.
	Changed bool
	// Seq counts mode entries since startup.
	Seq uint64

	EnteredAt    clock.Millis
	LastMotionAt clock.Millis

	Channels [NumChannels]uint16
	Raw      [NumChannels]uint16
	Rates    [NumChannels]float64
	Occupied [NumZones]bool
}
