package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"scrollfeed/distance"
	"scrollfeed/schedule"
	"scrollfeed/stream"
	"scrollfeed/ui"
)

// Config is the top-level YAML configuration for the scrollfeed daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. Flags are for small overrides on top of the file.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Engine   EngineConfig   `yaml:"engine"`
	Display  DisplayConfig  `yaml:"display"`
	Stream   StreamConfig   `yaml:"stream"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Manifest ManifestConfig `yaml:"manifest"`
	Server   ServerConfig   `yaml:"server"`
	Journal  JournalConfig  `yaml:"journal"`
	Terminal TerminalConfig `yaml:"terminal"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type InputConfig struct {
	Devices              []string `yaml:"devices,omitempty"` // evdev paths; empty runs without device input
	WheelPixelsPerDetent float64  `yaml:"wheel_pixels_per_detent"`
	TouchAxisMax         float64  `yaml:"touch_axis_max,omitempty"`      // ABS_MT_POSITION_Y maximum
	TouchScreenHeight    float64  `yaml:"touch_screen_height,omitempty"` // px the axis maps onto
}

// EngineConfig is the YAML form of distance.Config. Durations are in milliseconds.
type EngineConfig struct {
	StepPixels           float64 `yaml:"step_pixels"`
	WheelScale           float64 `yaml:"wheel_scale"`
	TouchScale           float64 `yaml:"touch_scale"`
	Friction             float64 `yaml:"friction"`
	MomentumMinVelocity  float64 `yaml:"momentum_min_velocity"`
	MomentumStopVelocity float64 `yaml:"momentum_stop_velocity"`
	VelocitySamples      int     `yaml:"velocity_samples"`
	VelocityWindowMS     int     `yaml:"velocity_window_ms"`
	WheelIdleMS          int     `yaml:"wheel_idle_ms"`
	MaxDelta             float64 `yaml:"max_delta"`
	DialStepDegrees      float64 `yaml:"dial_step_degrees"`
	DialRadius           float64 `yaml:"dial_radius"`
	FrameHz              int     `yaml:"frame_hz"`
}

type DisplayConfig struct {
	DevicePixelRatio float64 `yaml:"device_pixel_ratio"`
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	PPI              float64 `yaml:"ppi,omitempty"`
}

type StreamConfig struct {
	ViewportHeight    float64 `yaml:"viewport_height"`
	Buffer            int     `yaml:"buffer"`
	Parallax          float64 `yaml:"parallax"`
	DefaultItemHeight float64 `yaml:"default_item_height"`
	HeightTolerance   float64 `yaml:"height_tolerance"`
	GapSmallMin       float64 `yaml:"gap_small_min"`
	GapSmallMax       float64 `yaml:"gap_small_max"`
	GapLargeMin       float64 `yaml:"gap_large_min"`
	GapLargeMax       float64 `yaml:"gap_large_max"`
	GapRunMin         int     `yaml:"gap_run_min"`
	GapRunMax         int     `yaml:"gap_run_max"`
	Seed              uint64  `yaml:"seed,omitempty"` // 0 picks a random seed
}

type ScheduleConfig struct {
	Mode            string  `yaml:"mode"` // "fixed" or "random"
	MetersPerCard   float64 `yaml:"meters_per_card"`
	MinMeters       float64 `yaml:"min_meters"`
	MaxMeters       float64 `yaml:"max_meters"`
	CardLifetime    float64 `yaml:"card_lifetime"`
	NotifyMargin    float64 `yaml:"notify_margin"`
	MilestoneMeters float64 `yaml:"milestone_meters"`
}

type ManifestConfig struct {
	Items          string `yaml:"items"`      // file path or http(s) URL
	Flashcards     string `yaml:"flashcards"` // file path or http(s) URL; optional
	FetchTimeoutMS int    `yaml:"fetch_timeout_ms"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"` // WebSocket + HTTP; empty disables
	IPCSocket string `yaml:"ipc_socket"`
}

type JournalConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables the journal
}

type TerminalConfig struct {
	Enabled   bool    `yaml:"enabled"`
	RowPixels float64 `yaml:"row_pixels"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with the package defaults it maps onto.
func DefaultConfig() Config {
	gaps := stream.DefaultGapConfig()
	return Config{
		Input: InputConfig{
			WheelPixelsPerDetent: defaultWheelPixels,
		},
		Engine: EngineConfig{
			StepPixels:           distance.DefaultStepPixels,
			WheelScale:           1,
			TouchScale:           1,
			Friction:             distance.DefaultFriction,
			MomentumMinVelocity:  distance.DefaultMomentumMinVelocity,
			MomentumStopVelocity: distance.DefaultMomentumStopVelocity,
			VelocitySamples:      distance.DefaultVelocitySamples,
			VelocityWindowMS:     int(distance.DefaultVelocityWindow / time.Millisecond),
			WheelIdleMS:          int(distance.DefaultWheelIdle / time.Millisecond),
			MaxDelta:             distance.DefaultMaxDelta,
			DialStepDegrees:      distance.DefaultDialStepDegrees,
			DialRadius:           distance.DefaultDialRadius,
			FrameHz:              defaultFrameHz,
		},
		Display: DisplayConfig{
			DevicePixelRatio: 1,
		},
		Stream: StreamConfig{
			ViewportHeight:    stream.DefaultViewportHeight,
			Buffer:            stream.DefaultBuffer,
			Parallax:          stream.DefaultParallax,
			DefaultItemHeight: stream.DefaultItemHeight,
			HeightTolerance:   stream.DefaultHeightTolerance,
			GapSmallMin:       gaps.SmallMin,
			GapSmallMax:       gaps.SmallMax,
			GapLargeMin:       gaps.LargeMin,
			GapLargeMax:       gaps.LargeMax,
			GapRunMin:         gaps.RunMin,
			GapRunMax:         gaps.RunMax,
		},
		Schedule: ScheduleConfig{
			Mode:            schedule.ModeFixed.String(),
			MetersPerCard:   defaultMetersPerCard,
			MinMeters:       defaultRandomMinMeters,
			MaxMeters:       defaultRandomMaxMeters,
			CardLifetime:    defaultCardLifetime,
			NotifyMargin:    defaultNotifyMargin,
			MilestoneMeters: defaultMilestoneMeters,
		},
		Manifest: ManifestConfig{
			FetchTimeoutMS: defaultFetchTimeoutMS,
		},
		Server: ServerConfig{
			Listen:    defaultListen,
			IPCSocket: defaultIPCSocket,
		},
		Terminal: TerminalConfig{
			RowPixels: ui.DefaultRowPixels,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values to apply on top of a loaded config.
// Each override is applied only when its pointer is non-nil; main.go decides
// which flags exist and passes pointers only for flags that were set.
type FlagOverrides struct {
	InputDevice *string

	FrameHz *int

	Items      *string
	Flashcards *string

	Listen    *string
	IPCSocket *string

	Journal  *string
	Terminal *bool
	Seed     *uint64

	ScheduleMode *string

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}
	if o.FrameHz != nil {
		cfg.Engine.FrameHz = *o.FrameHz
	}
	if o.Items != nil {
		cfg.Manifest.Items = *o.Items
	}
	if o.Flashcards != nil {
		cfg.Manifest.Flashcards = *o.Flashcards
	}
	if o.Listen != nil {
		cfg.Server.Listen = *o.Listen
	}
	if o.IPCSocket != nil {
		cfg.Server.IPCSocket = *o.IPCSocket
	}
	if o.Journal != nil {
		cfg.Journal.Path = *o.Journal
	}
	if o.Terminal != nil {
		cfg.Terminal.Enabled = *o.Terminal
	}
	if o.Seed != nil {
		cfg.Stream.Seed = *o.Seed
	}
	if o.ScheduleMode != nil {
		cfg.Schedule.Mode = *o.ScheduleMode
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.WheelPixelsPerDetent <= 0 {
		return errors.New("input.wheel_pixels_per_detent must be > 0")
	}
	if c.Input.TouchAxisMax < 0 || c.Input.TouchScreenHeight < 0 {
		return errors.New("input.touch_axis_max and input.touch_screen_height must be >= 0")
	}

	// Engine
	if c.Engine.StepPixels <= 0 {
		return errors.New("engine.step_pixels must be > 0")
	}
	if c.Engine.Friction <= 0 || c.Engine.Friction >= 1 {
		return errors.New("engine.friction must be between 0 and 1 (exclusive)")
	}
	if c.Engine.MomentumStopVelocity <= 0 {
		return errors.New("engine.momentum_stop_velocity must be > 0")
	}
	if c.Engine.MomentumMinVelocity < c.Engine.MomentumStopVelocity {
		return errors.New("engine.momentum_min_velocity must be >= engine.momentum_stop_velocity")
	}
	if c.Engine.VelocitySamples <= 0 {
		return errors.New("engine.velocity_samples must be > 0")
	}
	if c.Engine.VelocityWindowMS <= 0 || c.Engine.WheelIdleMS <= 0 {
		return errors.New("engine.velocity_window_ms and engine.wheel_idle_ms must be > 0")
	}
	if c.Engine.MaxDelta < 0 {
		return errors.New("engine.max_delta must be >= 0")
	}
	if c.Engine.FrameHz <= 0 || c.Engine.FrameHz > 1000 {
		return errors.New("engine.frame_hz must be between 1 and 1000")
	}

	// Display
	if c.Display.DevicePixelRatio <= 0 {
		return errors.New("display.device_pixel_ratio must be > 0")
	}

	// Stream
	if c.Stream.ViewportHeight <= 0 {
		return errors.New("stream.viewport_height must be > 0")
	}
	if c.Stream.Buffer < 0 {
		return errors.New("stream.buffer must be >= 0")
	}
	if c.Stream.Parallax < 0 {
		return errors.New("stream.parallax must be >= 0")
	}
	if c.Stream.GapSmallMin > c.Stream.GapSmallMax || c.Stream.GapLargeMin > c.Stream.GapLargeMax {
		return errors.New("stream gap minimums must be <= their maximums")
	}
	if c.Stream.GapRunMin <= 0 || c.Stream.GapRunMin > c.Stream.GapRunMax {
		return errors.New("stream.gap_run_min must be > 0 and <= stream.gap_run_max")
	}

	// Schedule
	mode, err := schedule.ParseMode(c.Schedule.Mode)
	if err != nil {
		return fmt.Errorf("schedule.mode: %w", err)
	}
	if err := c.ScheduleParams().Validate(mode); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if c.Schedule.CardLifetime < 0 || c.Schedule.NotifyMargin < 0 || c.Schedule.MilestoneMeters < 0 {
		return errors.New("schedule.card_lifetime, notify_margin and milestone_meters must be >= 0")
	}

	// Manifest
	if c.Manifest.Items == "" {
		return errors.New("manifest.items must not be empty")
	}
	if c.Manifest.FetchTimeoutMS <= 0 {
		return errors.New("manifest.fetch_timeout_ms must be > 0")
	}

	// Terminal
	if c.Terminal.RowPixels <= 0 {
		return errors.New("terminal.row_pixels must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToEngineConfig converts the file config into the distance engine config.
func (c *Config) ToEngineConfig() distance.Config {
	cfg := distance.DefaultConfig()
	cfg.StepPixels = c.Engine.StepPixels
	cfg.WheelScale = c.Engine.WheelScale
	cfg.TouchScale = c.Engine.TouchScale
	cfg.Friction = c.Engine.Friction
	cfg.MomentumMinVelocity = c.Engine.MomentumMinVelocity
	cfg.MomentumStopVelocity = c.Engine.MomentumStopVelocity
	cfg.VelocitySamples = c.Engine.VelocitySamples
	cfg.VelocityWindow = time.Duration(c.Engine.VelocityWindowMS) * time.Millisecond
	cfg.WheelIdle = time.Duration(c.Engine.WheelIdleMS) * time.Millisecond
	cfg.MaxDelta = c.Engine.MaxDelta
	cfg.DialStepDegrees = c.Engine.DialStepDegrees
	cfg.DialRadius = c.Engine.DialRadius
	cfg.Display = distance.DisplayProfile{
		DevicePixelRatio: c.Display.DevicePixelRatio,
		Width:            c.Display.Width,
		Height:           c.Display.Height,
		PPI:              c.Display.PPI,
	}
	return cfg
}

// ToStreamConfig converts the file config into the content stream config.
func (c *Config) ToStreamConfig() stream.Config {
	return stream.Config{
		ViewportHeight:  c.Stream.ViewportHeight,
		Buffer:          c.Stream.Buffer,
		Parallax:        c.Stream.Parallax,
		DefaultHeight:   c.Stream.DefaultItemHeight,
		HeightTolerance: c.Stream.HeightTolerance,
		Gaps: stream.GapConfig{
			SmallMin: c.Stream.GapSmallMin,
			SmallMax: c.Stream.GapSmallMax,
			LargeMin: c.Stream.GapLargeMin,
			LargeMax: c.Stream.GapLargeMax,
			RunMin:   c.Stream.GapRunMin,
			RunMax:   c.Stream.GapRunMax,
		},
	}
}

// ScheduleParams returns the spawn schedule parameters.
func (c *Config) ScheduleParams() schedule.Params {
	return schedule.Params{
		MetersPerCard: c.Schedule.MetersPerCard,
		Min:           c.Schedule.MinMeters,
		Max:           c.Schedule.MaxMeters,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like journal.path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
