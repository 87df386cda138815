package controller

import (
	"fmt"
	"strings"
)

// Mode is the controller's operating mode.
type Mode string

const (
	ModeOff       Mode = "OFF"
	ModeSleepPrep Mode = "SLEEP_PREP"
	ModeRGB       Mode = "RGB"
	ModeWhite     Mode = "WHITE"
	ModeCustom1   Mode = "CUSTOM_1"
	ModeCustom2   Mode = "CUSTOM_2"
	ModeCustom3   Mode = "CUSTOM_3"
	ModeCustom4   Mode = "CUSTOM_4"
	ModeCustom5   Mode = "CUSTOM_5"
	ModeCustom6   Mode = "CUSTOM_6"
	ModeCustom7   Mode = "CUSTOM_7"
	ModeCustom8   Mode = "CUSTOM_8"

	// ModeInvalid marks "past the last mode". It is never entered.
	ModeInvalid Mode = "INVALID"
)

// modeOrder is the cycling order. Position in this table is the only
// ordering modes have.
var modeOrder = []Mode{
	ModeOff,
	ModeSleepPrep,
	ModeRGB,
	ModeWhite,
	ModeCustom1,
	ModeCustom2,
	ModeCustom3,
	ModeCustom4,
	ModeCustom5,
	ModeCustom6,
	ModeCustom7,
	ModeCustom8,
}

// Modes returns all enterable modes in order.
func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

func (m Mode) index() int {
	for i, o := range modeOrder {
		if o == m {
			return i
		}
	}
	return len(modeOrder)
}

// Valid reports whether m can be entered.
func (m Mode) Valid() bool {
	return m.index() < len(modeOrder)
}

// Next returns the mode after m, or ModeInvalid after the last one.
func (m Mode) Next() Mode {
	i := m.index() + 1
	if i >= len(modeOrder) {
		return ModeInvalid
	}
	return modeOrder[i]
}

// After reports whether m comes later than other in the cycling order.
// ModeInvalid is after everything.
func (m Mode) After(other Mode) bool {
	return m.index() > other.index()
}

// IsCustom reports whether m is one of the CUSTOM_n presets.
func (m Mode) IsCustom() bool {
	return m.Valid() && strings.HasPrefix(string(m), "CUSTOM_")
}

// IsLit reports whether m shows light (anything but OFF and SLEEP_PREP).
func (m Mode) IsLit() bool {
	return m.Valid() && m != ModeOff && m != ModeSleepPrep
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode name case-insensitively. Only enterable modes
// parse.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return ModeInvalid, fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}
