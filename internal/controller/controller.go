package controller

import (
	"fmt"
	"math"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/input"
	"github.com/sweeney/ambientd/internal/occupancy"
)

// Controller is the mode/sleep state machine. It is owned by the control
// loop and is not safe for concurrent use.
type Controller struct {
	clk         clock.Clock
	cfg         Config
	wakeToDoze  clock.Millis
	dozeToSleep clock.Millis

	channels [NumChannels]*input.Smoothed
	zones    [NumZones]*occupancy.Zone

	mode         Mode
	previous     Mode
	enteredAt    clock.Millis
	lastMotionAt clock.Millis

	occupied [NumZones]bool
	entries  uint64
	reported uint64
	counts   Counts
}

// New builds a controller in OFF with the sleep clock starting now.
// Every channel is required; a nil zone is treated as disabled.
func New(clk clock.Clock, cfg Config, channels [NumChannels]*input.Smoothed, zones [NumZones]*occupancy.Zone) (*Controller, error) {
	for i, ch := range channels {
		if ch == nil {
			return nil, fmt.Errorf("channel %s not configured", Channel(i))
		}
	}
	for i, z := range zones {
		if z == nil {
			zones[i] = occupancy.Disabled(fmt.Sprintf("zone%d", i+1))
		}
	}

	cfg = cfg.withDefaults()
	now := clk.Millis()
	return &Controller{
		clk:          clk,
		cfg:          cfg,
		wakeToDoze:   clock.FromDuration(cfg.WakeToDoze),
		dozeToSleep:  clock.FromDuration(cfg.DozeToSleep),
		channels:     channels,
		zones:        zones,
		mode:         ModeOff,
		previous:     ModeOff,
		enteredAt:    now,
		lastMotionAt: now,
	}, nil
}

func (c *Controller) enter(m Mode) {
	c.previous = c.mode
	c.mode = m
	c.enteredAt = c.clk.Millis()
	c.entries++
}

// SetMode switches to m unconditionally, even if already in m. SLEEP_PREP
// and ModeInvalid are refused: dozing is only ever entered by TickSleep.
func (c *Controller) SetMode(m Mode) bool {
	if !m.Valid() || m == ModeSleepPrep {
		return false
	}
	c.enter(m)
	c.counts.Manual++
	return true
}

// CycleMode advances to the next mode, wrapping to OFF past the maximum
// cyclable mode and stepping over SLEEP_PREP. It returns the new mode.
func (c *Controller) CycleMode() Mode {
	next := c.mode.Next()
	if next == ModeSleepPrep {
		next = next.Next()
	}
	if next.After(c.cfg.MaxCyclable) {
		next = ModeOff
	}
	c.enter(next)
	c.counts.Cycles++
	return next
}

// NoteActivity restarts the sleep clock without changing mode.
func (c *Controller) NoteActivity() {
	c.lastMotionAt = c.clk.Millis()
}

// TickSleep evaluates the zones and runs the doze/sleep timeline. It
// returns true if the mode changed.
//
//	lit --(idle >= wakeToDoze)--> SLEEP_PREP --(idle >= wakeToDoze+dozeToSleep)--> OFF
//	                              SLEEP_PREP --(motion)--> previous mode (dials: EvaluateGestures)
func (c *Controller) TickSleep() bool {
	now := c.clk.Millis()

	occupied := false
	for i, z := range c.zones {
		c.occupied[i] = z.IsOccupied()
		occupied = occupied || c.occupied[i]
	}
	if occupied {
		c.lastMotionAt = now
	}

	idle := now.Since(c.lastMotionAt)
	switch {
	case c.mode != ModeSleepPrep && c.mode != ModeOff:
		if idle >= c.wakeToDoze {
			c.enter(ModeSleepPrep)
			c.counts.Dozes++
			return true
		}
	case c.mode == ModeSleepPrep:
		if idle >= c.wakeToDoze+c.dozeToSleep {
			c.enter(ModeOff)
			c.counts.Sleeps++
			return true
		}
		if occupied {
			c.enter(c.previous)
			c.counts.Resumes++
			return true
		}
	}
	return false
}

// EvaluateGestures reacts to fast dial movement. Any dial past the wake
// threshold counts as activity, and brings a dozing light back to its
// previous mode. Past the grab threshold, an RGB dial takes a custom preset
// back to RGB, and the white dial takes RGB to WHITE. It returns true if the
// mode changed.
func (c *Controller) EvaluateGestures() bool {
	var rate [NumChannels]float64
	active := false
	for i, ch := range c.channels {
		rate[i] = math.Abs(ch.Derivative())
		active = active || rate[i] > c.cfg.WakeThreshold
	}
	if !active {
		return false
	}
	c.NoteActivity()

	if c.mode == ModeSleepPrep {
		c.enter(c.previous)
		c.counts.Resumes++
		return true
	}

	grab := c.cfg.GrabThreshold
	rgbMoved := rate[Red] > grab || rate[Green] > grab || rate[Blue] > grab
	switch {
	case c.mode.IsCustom() && rgbMoved:
		c.enter(ModeRGB)
	case c.mode == ModeRGB && rate[White] > grab:
		c.enter(ModeWhite)
	default:
		return false
	}
	c.counts.Grabs++
	return true
}

// Step runs one control iteration: sample every input, run the sleep
// timeline, read the dials, then check gestures. Mode changes made since the
// previous Step (including SetMode and CycleMode calls) set Frame.Changed.
func (c *Controller) Step() Frame {
	for _, ch := range c.channels {
		ch.Update()
	}
	for _, z := range c.zones {
		z.Update()
	}

	c.TickSleep()

	var f Frame
	for i, ch := range c.channels {
		f.Channels[i] = ch.SmoothedValue()
		f.Raw[i] = ch.RawValue()
		f.Rates[i] = ch.Derivative()
	}

	c.EvaluateGestures()

	f.At = c.clk.Millis()
	f.Mode = c.mode
	f.Previous = c.previous
	f.Seq = c.entries
	f.EnteredAt = c.enteredAt
	f.LastMotionAt = c.lastMotionAt
	f.Occupied = c.occupied
	f.Changed = c.entries != c.reported
	c.reported = c.entries
	return f
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// PreviousMode returns the mode before the last transition.
func (c *Controller) PreviousMode() Mode {
	return c.previous
}

// ModeEnteredAt returns when the current mode was entered.
func (c *Controller) ModeEnteredAt() clock.Millis {
	return c.enteredAt
}

// LastMotionAt returns when activity was last seen.
func (c *Controller) LastMotionAt() clock.Millis {
	return c.lastMotionAt
}

// Occupied returns zone occupancy as of the last TickSleep.
func (c *Controller) Occupied() [NumZones]bool {
	return c.occupied
}

// Zones returns the watched zones.
func (c *Controller) Zones() [NumZones]*occupancy.Zone {
	return c.zones
}

// Counts returns a copy of the transition counts.
func (c *Controller) Counts() Counts {
	return c.counts
}

// Config returns the effective configuration after defaults.
func (c *Controller) Config() Config {
	return c.cfg
}
