package render

import (
	"sync"

	"github.com/sweeney/ambientd/internal/status"
)

// Recorder is a Renderer that records calls for test assertions.
type Recorder struct {
	mu sync.Mutex

	// Entries contains every Transition passed to Enter.
	Entries []Transition

	// Processed counts calls to Process.
	Processed int

	// Last is the snapshot from the latest Process call.
	Last status.Snapshot
}

// NewRecorder creates a Recorder for testing.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Enter records the transition.
func (r *Recorder) Enter(t Transition) {
	r.mu.Lock()
	r.Entries = append(r.Entries, t)
	r.mu.Unlock()
}

// Process records the snapshot.
func (r *Recorder) Process(snap status.Snapshot) {
	r.mu.Lock()
	r.Processed++
	r.Last = snap
	r.mu.Unlock()
}

// Transitions returns a copy of the recorded entries.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.Entries))
	copy(out, r.Entries)
	return out
}

// Calls returns the number of Process calls so far.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Processed
}

// Reset clears recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Entries = nil
	r.Processed = 0
	r.Last = status.Snapshot{}
	r.mu.Unlock()
}
