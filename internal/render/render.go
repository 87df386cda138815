// Package render is the boundary between the controller and whatever shows
// the light. The control loop queues mode entries; a Driver goroutine hands
// them to a Renderer in order and lets it process the latest status.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/status"
)

// DefaultInterval is how often the driver runs the renderer.
const DefaultInterval = 20 * time.Millisecond

// DefaultQueueSize bounds the pending mode entries.
const DefaultQueueSize = 32

// Transition is one mode entry.
type Transition struct {
	At   clock.Millis
	Seq  uint64
	From controller.Mode
	To   controller.Mode
}

// Renderer shows the current mode.
type Renderer interface {
	// Enter is called once per mode entry, in order, before the next Process.
	Enter(t Transition)

	// Process is called on every driver tick with the latest status.
	Process(snap status.Snapshot)
}

// Driver runs a Renderer from its own goroutine.
type Driver struct {
	renderer Renderer
	tracker  *status.Tracker
	interval time.Duration

	mu    sync.Mutex
	queue *transitionQueue
}

// NewDriver creates a driver. Zero interval or queue size take the defaults.
func NewDriver(r Renderer, tracker *status.Tracker, interval time.Duration, queueSize int) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Driver{
		renderer: r,
		tracker:  tracker,
		interval: interval,
		queue:    newTransitionQueue(queueSize),
	}
}

// Notify queues the mode entry carried by f, if any. It is called from the
// control loop and never blocks on the renderer.
func (d *Driver) Notify(f controller.Frame) {
	if !f.Changed {
		return
	}
	d.mu.Lock()
	d.queue.push(Transition{At: f.At, Seq: f.Seq, From: f.Previous, To: f.Mode})
	d.mu.Unlock()
}

// Pending returns the number of queued mode entries.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.len()
}

// Flush delivers queued mode entries and then one Process call.
func (d *Driver) Flush() {
	d.mu.Lock()
	pending, dropped := d.queue.drain()
	d.mu.Unlock()

	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("Renderer fell behind, oldest mode entries skipped")
	}

	for _, t := range pending {
		d.renderer.Enter(t)
	}
	d.renderer.Process(d.tracker.Snapshot())
}

// Run flushes on every interval until ctx is cancelled, then flushes once
// more so the final mode is shown.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", d.interval).Msg("Renderer started")
	for {
		select {
		case <-ctx.Done():
			d.Flush()
			log.Debug().Msg("Renderer stopped")
			return
		case <-ticker.C:
			d.Flush()
		}
	}
}
