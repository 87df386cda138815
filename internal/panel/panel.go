package panel

import (
	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/input"
)

// Target is the part of the controller the panel drives.
type Target interface {
	SetMode(m controller.Mode) bool
	CycleMode() controller.Mode
	NoteActivity()
	Mode() controller.Mode
}

// Button is one debounced panel button.
type Button struct {
	Name   string
	Action Action
	Input  *input.Debounced
}

// Press describes a handled button press.
type Press struct {
	At     clock.Millis
	Button string // for combos, the name of the button that completed it
	Action Action
	// Mode is the controller's mode after the press.
	Mode controller.Mode
	// Combo is set when holding several mode buttons selected the combo mode.
	Combo bool
}

// Panel polls its buttons and applies their actions to a Target.
type Panel struct {
	clk     clock.Clock
	target  Target
	buttons []*Button
	combo   controller.Mode
	latched bool // combo fired during the current hold
}

// New creates a panel. An invalid combo mode means DefaultComboMode.
func New(clk clock.Clock, target Target, buttons []*Button, combo controller.Mode) *Panel {
	if !combo.Valid() || combo == controller.ModeSleepPrep {
		combo = DefaultComboMode
	}
	return &Panel{
		clk:     clk,
		target:  target,
		buttons: buttons,
		combo:   combo,
	}
}

// Buttons returns the panel's buttons.
func (p *Panel) Buttons() []*Button {
	return p.buttons
}

// Poll updates every button and acts on presses, in button order. It returns
// the presses it handled.
func (p *Panel) Poll() []Press {
	var pressed []*Button
	for _, b := range p.buttons {
		if b.Input.Update() && b.Input.IsActive() {
			pressed = append(pressed, b)
		}
	}

	held := 0
	for _, b := range p.buttons {
		if comboKey(b) && b.Input.IsActive() {
			held++
		}
	}
	if held < 2 {
		p.latched = false
	}

	var presses []Press
	for _, b := range pressed {
		if comboKey(b) && held >= 2 {
			if p.latched {
				continue
			}
			p.latched = true
			p.target.SetMode(p.combo)
			p.target.NoteActivity()
			presses = append(presses, p.press(b, true))
			continue
		}
		p.apply(b.Action)
		presses = append(presses, p.press(b, false))
	}
	return presses
}

// comboKey reports whether b selects a custom preset, and so takes part in
// the combo.
func comboKey(b *Button) bool {
	m, ok := b.Action.Mode()
	return ok && m.IsCustom()
}

func (p *Panel) apply(a Action) {
	switch a {
	case ActionOff:
		p.target.SetMode(controller.ModeOff)
		return
	case ActionCycle:
		p.target.CycleMode()
	case ActionRGB:
		p.target.SetMode(controller.ModeRGB)
	case ActionWhite:
		p.target.SetMode(controller.ModeWhite)
	default:
		if m, ok := a.Mode(); ok {
			p.target.SetMode(m)
		}
	}
	p.target.NoteActivity()
}

func (p *Panel) press(b *Button, combo bool) Press {
	return Press{
		At:     p.clk.Millis(),
		Button: b.Name,
		Action: b.Action,
		Mode:   p.target.Mode(),
		Combo:  combo,
	}
}
