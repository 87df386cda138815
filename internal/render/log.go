package render

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/status"
)

// LogRenderer writes mode entries at info level and channel changes at
// debug level. It stands in for a physical output stage.
type LogRenderer struct {
	logger   zerolog.Logger
	last     [controller.NumChannels]uint16
	lastMode controller.Mode
}

// NewLogRenderer creates a LogRenderer writing to the global logger.
func NewLogRenderer() *LogRenderer {
	return &LogRenderer{logger: log.With().Str("component", "render").Logger()}
}

// Enter logs the mode entry.
func (r *LogRenderer) Enter(t Transition) {
	r.logger.Info().
		Str("from", t.From.String()).
		Str("to", t.To.String()).
		Uint64("seq", t.Seq).
		Uint32("at_ms", uint32(t.At)).
		Msg("Mode entered")
}

// Process logs the dial levels when they or the mode have changed.
func (r *LogRenderer) Process(snap status.Snapshot) {
	if snap.Channels == r.last && snap.Mode == r.lastMode {
		return
	}
	r.last = snap.Channels
	r.lastMode = snap.Mode

	if !snap.Mode.IsLit() {
		return
	}
	ev := r.logger.Debug().Str("mode", snap.Mode.String())
	for i, v := range snap.Channels {
		ev = ev.Uint16(controller.Channel(i).String(), v)
	}
	ev.Msg("Levels")
}
