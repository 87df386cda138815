package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/config"
	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/gpio"
	"github.com/sweeney/ambientd/internal/input"
	"github.com/sweeney/ambientd/internal/render"
	"github.com/sweeney/ambientd/internal/status"
)

// captureLog redirects the global logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	return &buf
}

// fakeAnalogs returns an opener handing out FakeAnalog dials at level.
func fakeAnalogs(level uint16) (analogOpener, map[controller.Channel]*gpio.FakeAnalog) {
	dials := make(map[controller.Channel]*gpio.FakeAnalog)
	return func(ch controller.Channel, _ config.AnalogConfig) (input.AnalogLine, error) {
		d := gpio.NewFakeAnalog(level)
		dials[ch] = d
		return d, nil
	}, dials
}

// harness is a system on fake hardware whose clock is advanced by the
// loop's own now() calls, so every tick sees a deterministic time.
type harness struct {
	cfg     *config.Config
	bank    *gpio.FakeBank
	clk     *clock.Fake
	sys     *system
	tracker *status.Tracker
	rec     *render.Recorder
	driver  *render.Driver
	step    time.Duration
}

func newHarness(t *testing.T, cfg *config.Config, step time.Duration) *harness {
	t.Helper()
	h := &harness{
		cfg:  cfg,
		bank: gpio.NewFakeBank(),
		clk:  clock.NewFake(0),
		rec:  render.NewRecorder(),
		step: step,
	}
	open, _ := fakeAnalogs(1000)
	sys, err := build(cfg, h.bank, open, h.clk)
	require.NoError(t, err)
	h.sys = sys
	h.tracker = status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), statusConfig(cfg, "test", sys.zones))
	h.driver = render.NewDriver(h.rec, h.tracker, 0, 0)
	return h
}

// now yields start, start+step, ... and moves the fake millisecond clock in
// lockstep. Only called from runLoop's goroutine.
func (h *harness) now() func() time.Time {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * h.step)
		if n > 0 {
			h.clk.Advance(clock.FromDuration(h.step))
		}
		n++
		return t
	}
}

// run drives runLoop for nTicks and then delivers signal.
func (h *harness) run(t *testing.T, nTicks int, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.sys, h.tracker, h.driver, h.cfg.Loop.Heartbeat.Duration(), h.now(), tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	require.NoError(t, <-errCh)
	h.driver.Flush()
}

func (h *harness) line(offset int) *gpio.FakeDigital {
	return h.bank.Lines[offset]
}

func TestRunLoopShutdown(t *testing.T) {
	buf := captureLog(t)
	h := newHarness(t, config.Default(), time.Millisecond)

	h.run(t, 0, syscall.SIGTERM)

	out := buf.String()
	assert.Contains(t, out, "Shutting down")
	assert.Contains(t, out, `"signal":"SIGTERM"`)
	assert.Contains(t, out, `"event":"SHUTDOWN"`)
	assert.Empty(t, h.rec.Transitions())
}

func TestRunLoopRequiresDependencies(t *testing.T) {
	err := runLoop(nil, nil, nil, 0, time.Now, nil, nil)
	assert.Error(t, err)
}

func TestRunLoopCycleButton(t *testing.T) {
	captureLog(t)
	h := newHarness(t, config.Default(), time.Millisecond)

	// The default panel has "cycle" on line 6, pulled up and active low.
	h.line(6).Set(false)
	h.run(t, 100, syscall.SIGINT)

	snap := h.tracker.Snapshot()
	assert.Equal(t, controller.ModeRGB, snap.Mode)
	assert.Equal(t, 1, snap.Presses)
	assert.Equal(t, 1, snap.Counts.Cycles)

	entries := h.rec.Transitions()
	require.Len(t, entries, 1)
	assert.Equal(t, controller.ModeOff, entries[0].From)
	assert.Equal(t, controller.ModeRGB, entries[0].To)
	assert.Equal(t, clock.Millis(51), entries[0].At)
}

func TestRunLoopSleepTimeline(t *testing.T) {
	captureLog(t)
	cfg := config.Default()
	cfg.Sleep.WakeToDoze = config.Duration(30 * time.Second)
	cfg.Sleep.DozeToSleep = config.Duration(5 * time.Second)
	h := newHarness(t, cfg, 100*time.Millisecond)

	// "white" on line 19: the press commits on the second tick (200ms).
	h.line(19).Set(false)
	h.run(t, 400, syscall.SIGTERM)

	var got []controller.Mode
	var at []clock.Millis
	for _, e := range h.rec.Transitions() {
		got = append(got, e.To)
		at = append(at, e.At)
	}
	assert.Equal(t, []controller.Mode{controller.ModeWhite, controller.ModeSleepPrep, controller.ModeOff}, got)
	assert.Equal(t, []clock.Millis{200, 30200, 35200}, at)

	snap := h.tracker.Snapshot()
	assert.Equal(t, controller.ModeOff, snap.Mode)
	assert.Equal(t, 1, snap.Counts.Dozes)
	assert.Equal(t, 1, snap.Counts.Sleeps)
}

func TestRunLoopMotionKeepsLightOn(t *testing.T) {
	captureLog(t)
	cfg := config.Default()
	cfg.Sleep.WakeToDoze = config.Duration(30 * time.Second)
	cfg.Zones = []config.ZoneConfig{{Name: "hall", Line: 22, Pull: string(gpio.PullDown)}}
	require.NoError(t, cfg.Validate())
	h := newHarness(t, cfg, 100*time.Millisecond)

	h.line(19).Set(false) // white
	h.line(22).Set(true)  // someone is in the hall the whole time
	h.run(t, 600, syscall.SIGTERM)

	snap := h.tracker.Snapshot()
	assert.Equal(t, controller.ModeWhite, snap.Mode)
	assert.True(t, snap.Occupied[0])
	assert.Zero(t, snap.Counts.Dozes)
}

func TestRunLoopHeartbeat(t *testing.T) {
	buf := captureLog(t)
	cfg := config.Default()
	cfg.Loop.Heartbeat = config.Duration(15 * time.Minute)
	h := newHarness(t, cfg, 5*time.Minute)

	// Ticks at +5m, +10m, +15m (fires), +20m, +25m, +30m (fires).
	h.run(t, 6, syscall.SIGTERM)

	assert.Equal(t, 2, strings.Count(buf.String(), `"message":"Heartbeat"`))
	assert.Contains(t, buf.String(), `"event":"HEARTBEAT"`)
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	buf := captureLog(t)
	cfg := config.Default()
	cfg.Loop.Heartbeat = 0
	h := newHarness(t, cfg, 5*time.Minute)

	h.run(t, 6, syscall.SIGTERM)

	assert.NotContains(t, buf.String(), "Heartbeat")
}

func TestBuildRequestsLines(t *testing.T) {
	cfg := config.Default()
	cfg.Zones = []config.ZoneConfig{
		{Name: "hall", Line: 22, Pull: string(gpio.PullDown)},
		{Name: "desk", Line: 23, Pull: string(gpio.PullDown)},
	}
	bank := gpio.NewFakeBank()
	open, dials := fakeAnalogs(0)

	sys, err := build(cfg, bank, open, clock.NewFake(0))
	require.NoError(t, err)

	assert.Len(t, dials, controller.NumChannels)
	assert.Len(t, bank.Specs, 6)
	assert.Equal(t, gpio.LineSpec{Offset: 22, Pull: gpio.PullDown}, bank.Specs[0])
	assert.Equal(t, gpio.PullUp, bank.Specs[2].Pull)

	zones := sys.ctrl.Zones()
	assert.True(t, zones[0].Enabled())
	assert.True(t, zones[1].Enabled())
	assert.False(t, zones[2].Enabled())
	assert.Equal(t, [controller.NumZones]string{"hall", "desk", ""}, sys.zones)
	assert.Len(t, sys.panel.Buttons(), 4)
}

func TestBuildErrors(t *testing.T) {
	cfg := config.Default()

	bank := gpio.NewFakeBank()
	bank.InputError = errors.New("line busy")
	open, _ := fakeAnalogs(0)
	_, err := build(cfg, bank, open, clock.NewFake(0))
	assert.ErrorContains(t, err, "line busy")

	failing := func(ch controller.Channel, _ config.AnalogConfig) (input.AnalogLine, error) {
		return nil, errors.New("no adc")
	}
	_, err = build(cfg, gpio.NewFakeBank(), failing, clock.NewFake(0))
	assert.ErrorContains(t, err, "no adc")
}

func TestIIOOpener(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "iio:device0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_voltage3_raw"), []byte("1234\n"), 0o644))

	open := iioOpener(root, 12)
	line, err := open(controller.White, config.AnalogConfig{Channel: 3})
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), line.Read())

	_, err = open(controller.Red, config.AnalogConfig{Channel: 0})
	assert.ErrorContains(t, err, "red dial")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv(config.EnvGPIOBackend, "periph")
	t.Setenv(config.EnvLogLevel, "warn")

	cfg, err := loadConfig("", "debug", 500*time.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, gpio.BackendPeriph, cfg.GPIO.GetBackend())
	assert.Equal(t, "debug", cfg.Log.GetLevel(), "flag beats environment")
	assert.Equal(t, 500*time.Microsecond, cfg.Loop.Poll.Duration())

	_, err = loadConfig("", "", 5*time.Millisecond)
	assert.ErrorContains(t, err, "loop.poll")

	t.Setenv(config.EnvGPIOBackend, "bitbang")
	_, err = loadConfig("", "", 0)
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "", 0)
	assert.Error(t, err)
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}
