// Package panel turns front panel button presses into mode changes.
// Like the controller it drives, it does no I/O of its own.
package panel

import (
	"fmt"
	"strings"

	"github.com/sweeney/ambientd/internal/controller"
)

// Action is what a button does when pressed.
type Action string

const (
	ActionOff   Action = "off"
	ActionCycle Action = "cycle"
	ActionRGB   Action = "rgb"
	ActionWhite Action = "white"

	modePrefix = "mode:"
)

// DefaultComboMode is selected by holding two or more mode buttons
// together.
const DefaultComboMode = controller.ModeCustom8

// ModeAction returns the action that selects m.
func ModeAction(m controller.Mode) Action {
	return Action(modePrefix + string(m))
}

// ParseAction parses off, cycle, rgb, white or mode:<MODE>.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	switch a := Action(strings.ToLower(s)); a {
	case ActionOff, ActionCycle, ActionRGB, ActionWhite:
		return a, nil
	}
	if len(s) > len(modePrefix) && strings.EqualFold(s[:len(modePrefix)], modePrefix) {
		m, err := controller.ParseMode(s[len(modePrefix):])
		if err != nil {
			return "", err
		}
		if m == controller.ModeSleepPrep {
			return "", fmt.Errorf("action %q: %s cannot be selected", s, m)
		}
		return ModeAction(m), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Mode returns the mode a mode:<MODE> action selects.
func (a Action) Mode() (controller.Mode, bool) {
	if !strings.HasPrefix(string(a), modePrefix) {
		return "", false
	}
	return controller.Mode(strings.TrimPrefix(string(a), modePrefix)), true
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}
