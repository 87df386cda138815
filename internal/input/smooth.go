package input

import (
	"math"
	"time"

	"github.com/sweeney/ambientd/internal/clock"
)

// Defaults for dial inputs on a 12-bit ADC.
const (
	DefaultResolutionBits = 12
	DefaultLongHalfLife   = 50 * time.Millisecond
	DefaultShortHalfLife  = 5 * time.Millisecond
	DefaultDeadband       = 30
	DefaultMaxOutputRatio = 0.9
)

const (
	// relaxKnee is where brightness relaxation starts, in units of sigma.
	relaxKnee = 50
	// maxGapBoost caps how much a late sample may be up-weighted.
	maxGapBoost = 10
	// maxSpike keeps exp(-spike) above float64 underflow.
	maxSpike = 700
)

// SmoothConfig configures a Smoothed input. Zero fields take the defaults
// above; out-of-range values are clamped rather than rejected.
type SmoothConfig struct {
	ResolutionBits uint8
	LongHalfLife   time.Duration
	ShortHalfLife  time.Duration
	Deadband       uint16
	MaxOutputRatio float64
}

func (c SmoothConfig) withDefaults() SmoothConfig {
	if c.ResolutionBits == 0 {
		c.ResolutionBits = DefaultResolutionBits
	}
	if c.ResolutionBits > 16 {
		c.ResolutionBits = 16
	}
	if c.LongHalfLife <= 0 {
		c.LongHalfLife = DefaultLongHalfLife
	}
	if c.ShortHalfLife <= 0 {
		c.ShortHalfLife = DefaultShortHalfLife
	}
	if c.LongHalfLife < time.Millisecond {
		c.LongHalfLife = time.Millisecond
	}
	if c.ShortHalfLife < time.Millisecond {
		c.ShortHalfLife = time.Millisecond
	}
	if c.Deadband == 0 {
		c.Deadband = DefaultDeadband
	}
	if c.MaxOutputRatio <= 0 || c.MaxOutputRatio > 1 {
		c.MaxOutputRatio = DefaultMaxOutputRatio
	}
	return c
}

// HalfLifeFactor converts a half-life into the per-millisecond EMA weight
// 1 - exp(-ln2/H). After H one-millisecond samples a step response is at 50%.
func HalfLifeFactor(halfLife time.Duration) float64 {
	ms := float64(halfLife) / float64(time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return 1 - math.Exp(-math.Ln2/ms)
}

// rampLag is the steady-state lag, in milliseconds, of an EMA with weight f
// sampled once per millisecond while following a linear ramp.
func rampLag(f float64) float64 {
	return (1 - f) / f
}

// Smoothed filters a slowly varying analog line (a dial) with two
// exponential moving averages.
//
// The long EMA is the output. Each sample's weight in it shrinks
// exponentially with how far the sample jumped from the previous one, so
// brief spikes barely move it while slow real changes pass at full weight.
// The short EMA follows the median of the last three samples, so a lone
// outlier never reaches it; the gap between the two gives a rate-of-change
// estimate.
type Smoothed struct {
	line AnalogLine
	clk  clock.Clock

	fullScale     float64
	sigma         float64 // expected maximum change per millisecond
	baseLongDecay float64
	shortDecay    float64
	lagSpan       float64 // ms between the long and short path ramp lags
	deadband      uint16
	maxOutput     uint16

	lastRaw      uint16
	recent       [3]uint16 // raw history for the median, newest at next-1
	next         int
	lastSampleAt clock.Millis
	longEMA      float64
	shortEMA     float64
	longDecay    float64 // spike-adjusted factor used by the last update
}

// NewSmoothed creates a smoothed input, seeding both averages from one read
// of the line.
func NewSmoothed(line AnalogLine, clk clock.Clock, cfg SmoothConfig) *Smoothed {
	cfg = cfg.withDefaults()
	full := float64(uint32(1) << cfg.ResolutionBits)

	s := &Smoothed{
		line:          line,
		clk:           clk,
		fullScale:     full,
		sigma:         full / 1000,
		baseLongDecay: HalfLifeFactor(cfg.LongHalfLife),
		shortDecay:    HalfLifeFactor(cfg.ShortHalfLife),
		deadband:      cfg.Deadband,
		maxOutput:     uint16(math.Min(full*cfg.MaxOutputRatio, full-1)),
	}
	// The median trails a ramp by one sample.
	s.lagSpan = rampLag(s.baseLongDecay) - (rampLag(s.shortDecay) + 1)
	if s.lagSpan < 1 {
		// Half-lives too close together to tell fast from slow.
		s.lagSpan = 1
	}
	s.longDecay = s.baseLongDecay

	s.lastRaw = s.read()
	for i := range s.recent {
		s.recent[i] = s.lastRaw
	}
	s.longEMA = float64(s.lastRaw)
	s.shortEMA = float64(s.lastRaw)
	s.lastSampleAt = clk.Millis()
	return s
}

func (s *Smoothed) read() uint16 {
	r := s.line.Read()
	if top := uint16(s.fullScale - 1); r > top {
		r = top
	}
	return r
}

// Update takes a sample if at least a millisecond has passed since the last
// one. It returns true if a sample was taken.
func (s *Smoothed) Update() bool {
	now := s.clk.Millis()
	elapsed := now.Since(s.lastSampleAt)
	if elapsed < 1 {
		return false
	}

	reading := s.read()
	r := float64(reading)

	deviation := math.Abs(r-float64(s.lastRaw)) / s.sigma

	// Bright settings tolerate faster movement before it looks like noise.
	relax := 1.0
	if r > relaxKnee*s.sigma {
		relax = 1 + 0.5*math.Sqrt(r-relaxKnee*s.sigma)/s.sigma
	}

	spike := deviation / relax
	if spike > maxSpike {
		spike = maxSpike
	}
	s.longDecay = s.baseLongDecay * math.Exp(-spike)

	weight := s.longDecay
	if elapsed > 1 {
		// Missed samples: lean harder on this one to hold the half-life.
		weight *= clampFloat(0.95*float64(elapsed), 1, maxGapBoost)
		if weight > 1 {
			weight = 1
		}
	}

	s.longEMA = weight*r + (1-weight)*s.longEMA
	s.recent[s.next] = reading
	s.next = (s.next + 1) % len(s.recent)
	m := float64(median3(s.recent[0], s.recent[1], s.recent[2]))
	s.shortEMA = s.shortDecay*m + (1-s.shortDecay)*s.shortEMA

	s.lastRaw = reading
	s.lastSampleAt = now
	return true
}

// SmoothedValue returns the long EMA with a deadband at the bottom, so
// settling noise near zero reads as exactly 0, and capped at the maximum
// output.
func (s *Smoothed) SmoothedValue() uint16 {
	if s.longEMA < float64(s.deadband) {
		return 0
	}
	if s.longEMA > float64(s.maxOutput) {
		return s.maxOutput
	}
	return uint16(s.longEMA)
}

// RawValue returns the last unfiltered sample.
func (s *Smoothed) RawValue() uint16 {
	return s.lastRaw
}

// Derivative estimates how fast the dial is turning, in full-scale units per
// second (signed, positive when rising).
func (s *Smoothed) Derivative() float64 {
	perMs := (s.shortEMA - s.longEMA) / s.lagSpan
	return perMs * 1000 / s.fullScale
}

// MaxOutput returns the upper clamp of SmoothedValue.
func (s *Smoothed) MaxOutput() uint16 {
	return s.maxOutput
}

// LongDecay returns the spike-adjusted long EMA factor of the last update,
// before any missed-sample compensation.
func (s *Smoothed) LongDecay() float64 {
	return s.longDecay
}

// BaseLongDecay returns the long EMA factor for an undisturbed signal.
func (s *Smoothed) BaseLongDecay() float64 {
	return s.baseLongDecay
}

// ShortDecay returns the short EMA factor.
func (s *Smoothed) ShortDecay() float64 {
	return s.shortDecay
}

func median3(a, b, c uint16) uint16 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
