// Command ambientd runs the ambient lighting controller: it reads the dials,
// buttons and motion sensors, runs the mode state machine and hands the
// result to a renderer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/sweeney/ambientd/internal/clock"
	"github.com/sweeney/ambientd/internal/config"
	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/gpio"
	"github.com/sweeney/ambientd/internal/input"
	"github.com/sweeney/ambientd/internal/logging"
	"github.com/sweeney/ambientd/internal/occupancy"
	"github.com/sweeney/ambientd/internal/panel"
	"github.com/sweeney/ambientd/internal/render"
	"github.com/sweeney/ambientd/internal/status"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to YAML config (built-in defaults if empty)")
	logLevel := pflag.String("log-level", "", "Log level override (debug, info, warn, error)")
	poll := pflag.Duration("poll", 0, "Control loop interval override (at most 1ms)")
	printState := pflag.Bool("print-state", false, "Print current inputs as JSON and exit")
	pflag.Parse()

	cfg, err := loadConfig(*configPath, *logLevel, *poll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ambientd: %v\n", err)
		os.Exit(1)
	}

	bootID := logging.NewBootID()
	logging.Setup(cfg.Log.GetLevel(), cfg.Log.JSON, cfg.Log.Colors, bootID)

	if err := run(cfg, bootID, *printState); err != nil {
		log.Fatal().Err(err).Msg("Fatal")
	}
}

// loadConfig reads the file (or the defaults), then applies environment and
// flag overrides in that order.
func loadConfig(path, logLevel string, poll time.Duration) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		c, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	cfg.LoadFromEnv()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if poll > 0 {
		cfg.Loop.Poll = config.Duration(poll)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// analogOpener returns the ADC line for a dial.
type analogOpener func(ch controller.Channel, a config.AnalogConfig) (input.AnalogLine, error)

func iioOpener(root string, bits uint8) analogOpener {
	return func(ch controller.Channel, a config.AnalogConfig) (input.AnalogLine, error) {
		l, err := gpio.NewIIOLine(gpio.IIOPath(root, a.Device, a.Channel), bits)
		if err != nil {
			return nil, fmt.Errorf("%s dial: %w", ch, err)
		}
		return l, nil
	}
}

// system is everything the control loop drives.
type system struct {
	ctrl  *controller.Controller
	panel *panel.Panel
	zones [controller.NumZones]string
}

// build requests every line and wires inputs, zones, the controller and the
// panel together.
func build(cfg *config.Config, bank gpio.Bank, openAnalog analogOpener, clk clock.Clock) (*system, error) {
	smooth := cfg.Smoothing.Input()
	var channels [controller.NumChannels]*input.Smoothed
	for i := range channels {
		ch := controller.Channel(i)
		line, err := openAnalog(ch, cfg.Channels.Get(ch))
		if err != nil {
			return nil, err
		}
		channels[i] = input.NewSmoothed(line, clk, smooth)
	}

	sys := &system{}
	var zones [controller.NumZones]*occupancy.Zone
	for i, zc := range cfg.Zones {
		line, err := bank.Input(zc.LineSpec())
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", zc.Name, err)
		}
		sensor := input.NewDebounced(line, clk, zc.DebounceConfig())
		zones[i] = occupancy.New(zc.Name, sensor, clk, zc.GetCooldown())
		sys.zones[i] = zc.Name
	}

	ctrl, err := controller.New(clk, cfg.Controller(), channels, zones)
	if err != nil {
		return nil, err
	}
	sys.ctrl = ctrl

	var buttons []*panel.Button
	for _, bc := range cfg.Buttons {
		action, err := panel.ParseAction(bc.Action)
		if err != nil {
			return nil, fmt.Errorf("button %s: %w", bc.Name, err)
		}
		line, err := bank.Input(bc.LineSpec())
		if err != nil {
			return nil, fmt.Errorf("button %s: %w", bc.Name, err)
		}
		buttons = append(buttons, &panel.Button{
			Name:   bc.Name,
			Action: action,
			Input:  input.NewDebounced(line, clk, bc.DebounceConfig()),
		})
	}
	sys.panel = panel.New(clk, ctrl, buttons, cfg.ComboMode())
	return sys, nil
}

func statusConfig(cfg *config.Config, bootID string, zones [controller.NumZones]string) status.Config {
	return status.Config{
		PollMs:      cfg.Loop.Poll.Duration().Milliseconds(),
		HeartbeatMs: cfg.Loop.Heartbeat.Duration().Milliseconds(),
		Backend:     string(cfg.GPIO.GetBackend()),
		BootID:      bootID,
		Zones:       zones,
	}
}

func run(cfg *config.Config, bootID string, printState bool) error {
	bank, err := gpio.Open(cfg.GPIO.GetBackend(), cfg.GPIO.GetChip())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := bank.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release gpio lines")
		}
	}()

	bits := cfg.Smoothing.ResolutionBits
	if bits == 0 {
		bits = input.DefaultResolutionBits
	}
	clk := clock.NewSystem()
	sys, err := build(cfg, bank, iioOpener(cfg.GPIO.GetIIORoot(), bits), clk)
	if err != nil {
		return fmt.Errorf("init inputs: %w", err)
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg, bootID, sys.zones))

	// Print state mode
	if printState {
		tracker.Update(sys.ctrl.Step(), sys.ctrl.Counts())
		fmt.Println(string(status.FormatJSON(tracker.Snapshot())))
		return nil
	}

	driver := render.NewDriver(render.NewLogRenderer(), tracker, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	log.Info().
		RawJSON("status", status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", "")).
		Dur("poll", cfg.Loop.Poll.Duration()).
		Str("backend", string(cfg.GPIO.GetBackend())).
		Int("buttons", len(cfg.Buttons)).
		Int("zones", len(cfg.Zones)).
		Msg("Started")

	ticker := time.NewTicker(cfg.Loop.Poll.Duration())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sys, tracker, driver, cfg.Loop.Heartbeat.Duration(), time.Now, ticker.C, sigCh)
}

// runLoop polls the panel and steps the controller on every tick until a
// signal arrives. now is called once at start and once per tick.
func runLoop(sys *system, tracker *status.Tracker, driver *render.Driver, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if sys == nil || tracker == nil || driver == nil {
		return errors.New("runLoop: missing dependency")
	}
	hb := status.NewHeartbeat(heartbeat, now())

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info().
				Str("signal", name).
				RawJSON("status", status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", name)).
				Msg("Shutting down")
			return nil

		case <-tick:
			t := now()

			presses := sys.panel.Poll()
			for _, p := range presses {
				log.Info().
					Str("button", p.Button).
					Str("action", p.Action.String()).
					Bool("combo", p.Combo).
					Str("mode", p.Mode.String()).
					Msg("Button pressed")
			}
			tracker.AddPresses(len(presses))

			f := sys.ctrl.Step()
			tracker.Update(f, sys.ctrl.Counts())
			if f.Changed {
				log.Info().
					Str("mode", f.Mode.String()).
					Str("previous", f.Previous.String()).
					Uint64("seq", f.Seq).
					Msg("Mode changed")
				driver.Notify(f)
			}

			if hbData := hb.Check(t); hbData != nil {
				counts := sys.ctrl.Counts()
				log.Info().
					Dur("uptime", hbData.Uptime).
					Str("mode", f.Mode.String()).
					Int("cycles", counts.Cycles).
					Int("dozes", counts.Dozes).
					Int("sleeps", counts.Sleeps).
					RawJSON("status", status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")).
					Msg("Heartbeat")
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
