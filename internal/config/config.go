// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/ambientd/internal/controller"
	"github.com/sweeney/ambientd/internal/gpio"
	"github.com/sweeney/ambientd/internal/input"
	"github.com/sweeney/ambientd/internal/occupancy"
	"github.com/sweeney/ambientd/internal/panel"
)

// Environment overrides, applied after the file is read.
const (
	EnvLogLevel    = "AMBIENTD_LOG_LEVEL"
	EnvGPIOBackend = "AMBIENTD_GPIO_BACKEND"
)

// Config represents the daemon configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Loop      LoopConfig      `yaml:"loop"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Sleep     SleepConfig     `yaml:"sleep"`
	Gesture   GestureConfig   `yaml:"gesture"`
	Modes     ModesConfig     `yaml:"modes"`
	Buttons   []ButtonConfig  `yaml:"buttons"`
	Zones     []ZoneConfig    `yaml:"zones"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return strings.ToLower(c.Level)
}

// GPIOConfig selects the hardware backends.
type GPIOConfig struct {
	Backend string `yaml:"backend"` // cdev or periph
	Chip    string `yaml:"chip"`    // character device, cdev only
	IIORoot string `yaml:"iio_root"`
}

// GetBackend returns the digital backend with default
func (c *GPIOConfig) GetBackend() gpio.Backend {
	if c.Backend == "" {
		return gpio.BackendCdev
	}
	return gpio.Backend(strings.ToLower(c.Backend))
}

// GetChip returns the chip name with default
func (c *GPIOConfig) GetChip() string {
	if c.Chip == "" {
		return gpio.DefaultChip
	}
	return c.Chip
}

// GetIIORoot returns the IIO sysfs root with default
func (c *GPIOConfig) GetIIORoot() string {
	if c.IIORoot == "" {
		return gpio.IIORoot
	}
	return c.IIORoot
}

// LoopConfig contains control loop timing.
type LoopConfig struct {
	Poll      Duration `yaml:"poll"`
	Heartbeat Duration `yaml:"heartbeat"` // unset takes the default, negative disables
}

// Loop timing. MaxPoll is the slowest loop the dial filters are tuned for.
const (
	DefaultPoll      = time.Millisecond
	DefaultHeartbeat = 15 * time.Minute
	MaxPoll          = time.Millisecond
)

// AnalogConfig locates one dial on the ADC.
type AnalogConfig struct {
	Device  int `yaml:"device"`
	Channel int `yaml:"channel"`
}

// ChannelsConfig maps each colour channel to an ADC input.
type ChannelsConfig struct {
	Red   *AnalogConfig `yaml:"red"`
	Green *AnalogConfig `yaml:"green"`
	Blue  *AnalogConfig `yaml:"blue"`
	White *AnalogConfig `yaml:"white"`
}

// Get returns the ADC input for ch. Unset channels default to device 0,
// input equal to the channel index.
func (c *ChannelsConfig) Get(ch controller.Channel) AnalogConfig {
	var a *AnalogConfig
	switch ch {
	case controller.Red:
		a = c.Red
	case controller.Green:
		a = c.Green
	case controller.Blue:
		a = c.Blue
	case controller.White:
		a = c.White
	}
	if a == nil {
		return AnalogConfig{Channel: int(ch)}
	}
	return *a
}

// SmoothingConfig tunes the dial filter. Zero values take the filter's
// defaults.
type SmoothingConfig struct {
	ResolutionBits uint8    `yaml:"resolution_bits"`
	LongHalfLife   Duration `yaml:"long_half_life"`
	ShortHalfLife  Duration `yaml:"short_half_life"`
	Deadband       uint16   `yaml:"deadband"`
	MaxOutputRatio float64  `yaml:"max_output_ratio"`
}

// Input converts to the filter's configuration.
func (c *SmoothingConfig) Input() input.SmoothConfig {
	return input.SmoothConfig{
		ResolutionBits: c.ResolutionBits,
		LongHalfLife:   c.LongHalfLife.Duration(),
		ShortHalfLife:  c.ShortHalfLife.Duration(),
		Deadband:       c.Deadband,
		MaxOutputRatio: c.MaxOutputRatio,
	}
}

// SleepConfig contains the doze/sleep timeline.
type SleepConfig struct {
	WakeToDoze  Duration `yaml:"wake_to_doze"`
	DozeToSleep Duration `yaml:"doze_to_sleep"`
}

// GestureConfig contains dial speed thresholds in full scale per second.
type GestureConfig struct {
	WakeThreshold float64 `yaml:"wake_threshold"`
	GrabThreshold float64 `yaml:"grab_threshold"`
}

// ModesConfig contains mode selection settings.
type ModesConfig struct {
	MaxCyclable string `yaml:"max_cyclable"`
	Combo       string `yaml:"combo"`
}

// ButtonConfig describes one panel button.
type ButtonConfig struct {
	Name     string   `yaml:"name"`
	Line     int      `yaml:"line"`
	Pin      string   `yaml:"pin"` // periph pin name, defaults to GPIO<line>
	Pull     string   `yaml:"pull"`
	Action   string   `yaml:"action"`
	Debounce Duration `yaml:"debounce"`
}

// ZoneConfig describes one motion zone.
type ZoneConfig struct {
	Name     string   `yaml:"name"`
	Line     int      `yaml:"line"`
	Pin      string   `yaml:"pin"`
	Pull     string   `yaml:"pull"`
	Debounce Duration `yaml:"debounce"`
	Cooldown Duration `yaml:"cooldown"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given: the four
// front panel buttons on their usual lines and no motion zones.
func Default() *Config {
	cfg := &Config{
		Buttons: []ButtonConfig{
			{Name: "power", Line: 5, Action: string(panel.ActionOff)},
			{Name: "cycle", Line: 6, Action: string(panel.ActionCycle)},
			{Name: "rgb", Line: 13, Action: string(panel.ActionRGB)},
			{Name: "white", Line: 19, Action: string(panel.ActionWhite)},
		},
	}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Loop.Poll <= 0 {
		c.Loop.Poll = Duration(DefaultPoll)
	}
	if c.Loop.Heartbeat == 0 {
		c.Loop.Heartbeat = Duration(DefaultHeartbeat)
	}
	if c.Loop.Heartbeat < 0 {
		c.Loop.Heartbeat = 0
	}
	for i := range c.Buttons {
		b := &c.Buttons[i]
		if b.Name == "" {
			b.Name = fmt.Sprintf("button%d", i+1)
		}
		if b.Pull == "" {
			b.Pull = string(gpio.PullUp)
		}
	}
	for i := range c.Zones {
		z := &c.Zones[i]
		if z.Name == "" {
			z.Name = fmt.Sprintf("zone%d", i+1)
		}
		if z.Pull == "" {
			z.Pull = string(gpio.PullDown)
		}
	}
}

// LoadFromEnv applies AMBIENTD_* environment overrides.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvGPIOBackend); v != "" {
		c.GPIO.Backend = v
	}
}

// Validate checks the values that cannot be clamped into range.
func (c *Config) Validate() error {
	switch c.GPIO.GetBackend() {
	case gpio.BackendCdev, gpio.BackendPeriph:
	default:
		return fmt.Errorf("gpio.backend: unknown backend %q", c.GPIO.Backend)
	}
	if c.Modes.MaxCyclable != "" {
		if _, err := controller.ParseMode(c.Modes.MaxCyclable); err != nil {
			return fmt.Errorf("modes.max_cyclable: %w", err)
		}
	}
	if c.Modes.Combo != "" {
		if _, err := controller.ParseMode(c.Modes.Combo); err != nil {
			return fmt.Errorf("modes.combo: %w", err)
		}
	}
	if c.Loop.Poll.Duration() > MaxPoll {
		return fmt.Errorf("loop.poll: %s is slower than the %s the dial filters assume", c.Loop.Poll.Duration(), MaxPoll)
	}
	if len(c.Zones) > controller.NumZones {
		return fmt.Errorf("zones: at most %d supported, got %d", controller.NumZones, len(c.Zones))
	}

	lines := make(map[int]string)
	claim := func(line int, owner string) error {
		if line < 0 {
			return fmt.Errorf("%s: invalid line %d", owner, line)
		}
		if prev, dup := lines[line]; dup {
			return fmt.Errorf("%s: line %d already used by %s", owner, line, prev)
		}
		lines[line] = owner
		return nil
	}
	for _, b := range c.Buttons {
		owner := "button " + b.Name
		if _, err := panel.ParseAction(b.Action); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
		if _, err := gpio.ParsePull(b.Pull); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
		if err := claim(b.Line, owner); err != nil {
			return err
		}
	}
	for _, z := range c.Zones {
		owner := "zone " + z.Name
		if _, err := gpio.ParsePull(z.Pull); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
		if err := claim(z.Line, owner); err != nil {
			return err
		}
	}
	return nil
}

// Controller converts to the controller's configuration. Validate must
// have passed.
func (c *Config) Controller() controller.Config {
	cfg := controller.Config{
		WakeToDoze:    c.Sleep.WakeToDoze.Duration(),
		DozeToSleep:   c.Sleep.DozeToSleep.Duration(),
		WakeThreshold: c.Gesture.WakeThreshold,
		GrabThreshold: c.Gesture.GrabThreshold,
	}
	if m, err := controller.ParseMode(c.Modes.MaxCyclable); err == nil {
		cfg.MaxCyclable = m
	}
	return cfg
}

// ComboMode returns the mode selected by holding two custom buttons.
func (c *Config) ComboMode() controller.Mode {
	if m, err := controller.ParseMode(c.Modes.Combo); err == nil {
		return m
	}
	return panel.DefaultComboMode
}

// DebounceConfig returns the button debounce settings. Pulled-up buttons
// are active low.
func (b ButtonConfig) DebounceConfig() input.DebounceConfig {
	pull, _ := gpio.ParsePull(b.Pull)
	return input.DebounceConfig{
		Window:    b.Debounce.Duration(),
		ActiveLow: pull == gpio.PullUp,
	}
}

// LineSpec returns the GPIO request for the button.
func (b ButtonConfig) LineSpec() gpio.LineSpec {
	pull, _ := gpio.ParsePull(b.Pull)
	return gpio.LineSpec{Offset: b.Line, Name: b.Pin, Pull: pull}
}

// DebounceConfig returns the motion sensor debounce settings. PIR outputs
// are active high unless pulled up.
func (z ZoneConfig) DebounceConfig() input.DebounceConfig {
	pull, _ := gpio.ParsePull(z.Pull)
	window := z.Debounce.Duration()
	if window <= 0 {
		window = occupancy.DefaultDebounce
	}
	return input.DebounceConfig{Window: window, ActiveLow: pull == gpio.PullUp}
}

// LineSpec returns the GPIO request for the zone's sensor.
func (z ZoneConfig) LineSpec() gpio.LineSpec {
	pull, _ := gpio.ParsePull(z.Pull)
	return gpio.LineSpec{Offset: z.Line, Name: z.Pin, Pull: pull}
}

// GetCooldown returns the occupancy cooldown with default
func (z ZoneConfig) GetCooldown() time.Duration {
	if z.Cooldown <= 0 {
		return occupancy.DefaultCooldown
	}
	return z.Cooldown.Duration()
}
