package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ambientd/internal/controller"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Mode          string        `json:"mode"`
	Previous      string        `json:"previous"`
	ModeSeq       uint64        `json:"mode_seq"`
	InModeMs      uint32        `json:"in_mode_ms"`
	IdleMs        uint32        `json:"idle_ms"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Channels      []ChannelJSON `json:"channels"`
	Zones         []ZoneJSON    `json:"zones"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is the JSON representation of one dial.
type ChannelJSON struct {
	Name  string  `json:"name"`
	Value uint16  `json:"value"`
	Raw   uint16  `json:"raw"`
	Rate  float64 `json:"rate"`
}

// ZoneJSON is the JSON representation of one motion zone.
type ZoneJSON struct {
	Name     string `json:"name"`
	Occupied bool   `json:"occupied"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Manual  int `json:"manual"`
	Cycles  int `json:"cycles"`
	Dozes   int `json:"dozes"`
	Sleeps  int `json:"sleeps"`
	Resumes int `json:"resumes"`
	Grabs   int `json:"grabs"`
	Presses int `json:"presses"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Backend     string `json:"backend"`
	BootID      string `json:"boot_id,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Mode:          mode,
		Previous:      string(snap.Previous),
		ModeSeq:       snap.Seq,
		InModeMs:      uint32(snap.At.Since(snap.EnteredAt)),
		IdleMs:        uint32(snap.At.Since(snap.LastMotionAt)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Manual:  snap.Counts.Manual,
			Cycles:  snap.Counts.Cycles,
			Dozes:   snap.Counts.Dozes,
			Sleeps:  snap.Counts.Sleeps,
			Resumes: snap.Counts.Resumes,
			Grabs:   snap.Counts.Grabs,
			Presses: snap.Presses,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Backend:     snap.Config.Backend,
			BootID:      snap.Config.BootID,
		},
	}

	for i := 0; i < controller.NumChannels; i++ {
		inner.Channels = append(inner.Channels, ChannelJSON{
			Name:  controller.Channel(i).String(),
			Value: snap.Channels[i],
			Raw:   snap.Raw[i],
			Rate:  snap.Rates[i],
		})
	}
	for i, name := range snap.Config.Zones {
		if name == "" {
			continue
		}
		inner.Zones = append(inner.Zones, ZoneJSON{Name: name, Occupied: snap.Occupied[i]})
	}
	if inner.Zones == nil {
		inner.Zones = []ZoneJSON{}
	}
	return inner
}

// FormatJSON returns the indented JSON status, as printed by --print-state.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status attached to the
// startup, heartbeat and shutdown log lines.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
