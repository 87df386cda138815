//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

// CdevBank reads lines through the Linux GPIO character device.
type CdevBank struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines []*cdevLine
}

// OpenCdev opens the named chip (e.g. "gpiochip0").
func OpenCdev(chip string) (*CdevBank, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &CdevBank{chip: c}, nil
}

func pullOption(p Pull) gpiocdev.LineReqOption {
	switch p {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

// Input requests the line at spec.Offset as an input.
func (b *CdevBank) Input(spec LineSpec) (Line, error) {
	l, err := b.chip.RequestLine(spec.Offset, gpiocdev.AsInput, pullOption(spec.Pull))
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", spec.Offset, err)
	}
	cl := &cdevLine{line: l, offset: spec.Offset}
	b.mu.Lock()
	b.lines = append(b.lines, cl)
	b.mu.Unlock()
	return cl, nil
}

// Close releases all lines and the chip.
// Lines are reconfigured to input with pull-down first, matching Pi boot
// defaults, so nothing is left driving a pin across a reboot.
func (b *CdevBank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, cl := range b.lines {
		if err := cl.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", cl.offset, err))
		}
		if err := cl.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", cl.offset, err))
		}
	}
	b.lines = nil

	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type cdevLine struct {
	line    *gpiocdev.Line
	offset  int
	last    bool
	failing bool
}

func (l *cdevLine) Read() bool {
	v, err := l.line.Value()
	if err != nil {
		if !l.failing {
			log.Warn().Err(err).Int("offset", l.offset).Msg("gpio read failed, holding last level")
			l.failing = true
		}
		return l.last
	}
	if l.failing {
		log.Info().Int("offset", l.offset).Msg("gpio read recovered")
		l.failing = false
	}
	l.last = v != 0
	return l.last
}
