// Package status provides a thread-safe status tracker for the ambientd daemon.
// It is written by the control loop and read by the renderer and the
// heartbeat log.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/controller"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Backend     string
	BootID      string
	Zones       [controller.NumZones]string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Mode         controller.Mode
	Previous     controller.Mode
	Seq          uint64
	At           clock.Millis
	EnteredAt    clock.Millis
	LastMotionAt clock.Millis

	Channels [controller.NumChannels]uint16
	Raw      [controller.NumChannels]uint16
	Rates    [controller.NumChannels]float64
	Occupied [controller.NumZones]bool

	Counts    controller.Counts
	Presses   int
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Idle returns how long the room has been still as of the last update.
func (s Snapshot) Idle() time.Duration {
	return s.At.Since(s.LastMotionAt).Duration()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      controller.ModeOff,
			Previous:  controller.ModeOff,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records one control frame and the controller's counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(f controller.Frame, counts controller.Counts) {
	t.mu.Lock()
	t.snap.Mode = f.Mode
	t.snap.Previous = f.Previous
	t.snap.Seq = f.Seq
	t.snap.At = f.At
	t.snap.EnteredAt = f.EnteredAt
	t.snap.LastMotionAt = f.LastMotionAt
	t.snap.Channels = f.Channels
	t.snap.Raw = f.Raw
	t.snap.Rates = f.Rates
	t.snap.Occupied = f.Occupied
	t.snap.Counts = counts
	t.mu.Unlock()
}

// AddPresses adds to the handled button press count.
func (t *Tracker) AddPresses(n int) {
	if n == 0 {
		return
	}
	t.mu.Lock()
	t.snap.Presses += n
	t.mu.Unlock()
}

// Seq returns the current mode-entry sequence number without copying the
// whole snapshot.
func (t *Tracker) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Seq
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
