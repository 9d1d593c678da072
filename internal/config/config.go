package config

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/vscripting/internal/surface"
	"github.com/dshills/vscripting/internal/theme"
)

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete application configuration.
type Config struct {
	Model   ModelConfig   `toml:"model"`
	Surface SurfaceConfig `toml:"surface"`
	Theme   ThemeConfig   `toml:"theme"`
	Log     LogConfig     `toml:"log"`
}

// ModelConfig configures visual models.
type ModelConfig struct {
	// DelayAfterTyping is the quiet period before an edit refreshes the
	// model.
	DelayAfterTyping Duration `toml:"delay_after_typing"`
	// RestartTimerOnAdd restarts the quiet period on every edit.
	RestartTimerOnAdd bool `toml:"restart_timer_on_add"`
	// Workers bounds the background resolution pool.
	Workers int `toml:"workers"`
	// Settle is how long a file must stay unchanged before an edit is
	// committed.
	Settle Duration `toml:"settle"`
}

// SurfaceConfig configures the editor surface.
type SurfaceConfig struct {
	MinScale             float64 `toml:"min_scale"`
	MaxScale             float64 `toml:"max_scale"`
	MaxFitIntoScale      float64 `toml:"max_fit_into_scale"`
	ScreenScalingFactor  float64 `toml:"screen_scaling_factor"`
	ScaleChangeThreshold float64 `toml:"scale_change_threshold"`
	ZoomControls         string  `toml:"zoom_controls"`
	FitPadding           int     `toml:"fit_padding"`
	SmallProgressIcon    bool    `toml:"small_progress_icon"`
}

// ThemeConfig selects the theme models are rendered with.
type ThemeConfig struct {
	// Name is a style resource URL such as "@style/monokai".
	Name string `toml:"name"`
	// Background is the host background colour, "#rrggbb".
	Background string `toml:"background"`
	// Script is an optional Lua file defining preferred_theme(ctx).
	Script string `toml:"script"`
	// StylesDir holds project styles as chroma XML files.
	StylesDir string `toml:"styles_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
	// File is the log file. Empty logs to stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	s := surface.DefaultSettings()
	return &Config{
		Model: ModelConfig{
			DelayAfterTyping:  Duration(250 * time.Millisecond),
			RestartTimerOnAdd: true,
			Workers:           4,
			Settle:            Duration(300 * time.Millisecond),
		},
		Surface: SurfaceConfig{
			MinScale:             s.MinScale,
			MaxScale:             s.MaxScale,
			MaxFitIntoScale:      s.MaxFitIntoScale,
			ScreenScalingFactor:  s.ScreenScalingFactor,
			ScaleChangeThreshold: s.ScaleChangeThreshold,
			ZoomControls:         s.ZoomControls.String(),
			// the terminal host measures in cells
			FitPadding:        2,
			SmallProgressIcon: s.SmallProgressIcon,
		},
		Theme: ThemeConfig{
			Name:       theme.StyleURL("monokai"),
			Background: "#1e1e1e",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if c.Model.DelayAfterTyping <= 0 {
		return &ValidationError{Path: "model.delay_after_typing", Message: "must be positive", Value: c.Model.DelayAfterTyping.Std()}
	}
	if c.Model.Workers < 1 {
		return &ValidationError{Path: "model.workers", Message: "must be at least 1", Value: c.Model.Workers}
	}
	if c.Model.Settle <= 0 {
		return &ValidationError{Path: "model.settle", Message: "must be positive", Value: c.Model.Settle.Std()}
	}
	if _, err := c.SurfaceSettings(); err != nil {
		return err
	}
	if u, ok := theme.ParseURL(c.Theme.Name); !ok || u.Type != theme.TypeStyle {
		return &ValidationError{Path: "theme.name", Message: "must be a style URL like @style/monokai", Value: c.Theme.Name}
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return &ValidationError{Path: "log.format", Message: "must be text or json", Value: c.Log.Format}
	}
	return nil
}

// SurfaceSettings converts the surface section.
func (c *Config) SurfaceSettings() (surface.Settings, error) {
	policy, err := surface.ParseZoomControlsPolicy(c.Surface.ZoomControls)
	if err != nil {
		return surface.Settings{}, &ValidationError{Path: "surface.zoom_controls", Message: "must be visible, hidden or auto_hide", Value: c.Surface.ZoomControls}
	}
	maxFit := c.Surface.MaxFitIntoScale
	if maxFit == 0 {
		maxFit = math.Inf(1)
	}
	s := surface.Settings{
		MinScale:             c.Surface.MinScale,
		MaxScale:             c.Surface.MaxScale,
		MaxFitIntoScale:      maxFit,
		ScreenScalingFactor:  c.Surface.ScreenScalingFactor,
		ScaleChangeThreshold: c.Surface.ScaleChangeThreshold,
		FitPadding:           c.Surface.FitPadding,
		ZoomControls:         policy,
		SmallProgressIcon:    c.Surface.SmallProgressIcon,
	}
	if err := s.Validate(); err != nil {
		return surface.Settings{}, &ValidationError{Path: "surface", Message: err.Error(), Value: c.Surface}
	}
	return s, nil
}

// BackgroundColor parses the theme background.
func (c *Config) BackgroundColor() (colorful.Color, error) {
	col, err := colorful.Hex(c.Theme.Background)
	if err != nil {
		return colorful.Color{}, &ValidationError{Path: "theme.background", Message: "must be #rrggbb", Value: c.Theme.Background}
	}
	return col, nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, &ValidationError{Path: "log.level", Message: "must be debug, info, warn or error", Value: s}
}

func (c *Config) String() string {
	return fmt.Sprintf("theme=%s delay=%s zoom_controls=%s", c.Theme.Name, c.Model.DelayAfterTyping.Std(), c.Surface.ZoomControls)
}
