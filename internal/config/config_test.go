package config

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vscripting/internal/surface"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	s, err := cfg.SurfaceSettings()
	require.NoError(t, err)
	want := surface.DefaultSettings()
	want.FitPadding = 2
	assert.Equal(t, want, s)
	assert.Equal(t, 250*time.Millisecond, cfg.Model.DelayAfterTyping.Std())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := write(t, t.TempDir(), "config.toml", `
[model]
delay_after_typing = "400ms"

[surface]
max_scale = 4.0
zoom_controls = "auto_hide"

[theme]
name = "@style/dracula"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 400*time.Millisecond, cfg.Model.DelayAfterTyping.Std())
	assert.True(t, cfg.Model.RestartTimerOnAdd)
	assert.Equal(t, 4.0, cfg.Surface.MaxScale)
	assert.True(t, math.IsInf(cfg.Surface.MaxFitIntoScale, 1))
	assert.Equal(t, 0.005, cfg.Surface.ScaleChangeThreshold)
	assert.Equal(t, "@style/dracula", cfg.Theme.Name)
	assert.Equal(t, "#1e1e1e", cfg.Theme.Background)

	s, err := cfg.SurfaceSettings()
	require.NoError(t, err)
	assert.Equal(t, surface.ZoomControlsAutoHide, s.ZoomControls)
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "base.toml", `
[theme]
name = "@style/github"
background = "#ffffff"
`)
	path := write(t, dir, "config.toml", `
"@include" = "base.toml"

[theme]
name = "@style/dracula"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "@style/dracula", cfg.Theme.Name)
	assert.Equal(t, "#ffffff", cfg.Theme.Background)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "a.toml", `"@include" = "a.toml"`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrIncludeDepthExceeded)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("broken.toml", []byte("[model\ndelay = 1"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "broken.toml", pe.Path)
	assert.Equal(t, 1, pe.Line)

	_, err = Parse("unknown.toml", []byte("[model]\nworkers = 2\n\n[surface]\nzoom = 3\n"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "unknown.toml", pe.Path)
	assert.Equal(t, 5, pe.Line)
	assert.Contains(t, pe.Message, "zoom")
}

func TestUnknownKeyInIncludeNamesThatFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "base.toml", "[theme]\nname = \"@style/dracula\"\ncolour = \"red\"\n")
	path := write(t, dir, "main.toml", "\"@include\" = \"base.toml\"\n")

	_, err := Load(path)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, filepath.Join(dir, "base.toml"), pe.Path)
	assert.Equal(t, 3, pe.Line)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{"delay", "[model]\ndelay_after_typing = \"0s\"", "model.delay_after_typing"},
		{"workers", "[model]\nworkers = 0", "model.workers"},
		{"policy", "[surface]\nzoom_controls = \"sometimes\"", "surface.zoom_controls"},
		{"scale", "[surface]\nmax_scale = -1.0", "surface"},
		{"theme", "[theme]\nname = \"@color/red\"", "theme.name"},
		{"background", "[theme]\nbackground = \"black\"", "theme.background"},
		{"level", "[log]\nlevel = \"loud\"", "log.level"},
		{"format", "[log]\nformat = \"xml\"", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name, []byte(tt.data))
			require.ErrorIs(t, err, ErrValidationFailed)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.path, ve.Path)
		})
	}
}

func TestZeroMaxFitIntoMeansUnbounded(t *testing.T) {
	cfg, err := Parse("cfg", []byte("[surface]\nmax_fit_into_scale = 0.0"))
	require.NoError(t, err)
	s, err := cfg.SurfaceSettings()
	require.NoError(t, err)
	assert.True(t, math.IsInf(s.MaxFitIntoScale, 1))
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": 1}
	src := map[string]any{"a": map[string]any{"y": 3}, "b": map[string]any{"z": 1}, "c": true}
	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 1, "y": 3},
		"b": map[string]any{"z": 1},
		"c": true,
	}, got)
	assert.Equal(t, map[string]any{"k": 1}, DeepMerge(nil, map[string]any{"k": 1}))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "config.toml", "[theme]\nname = \"@style/monokai\"\n")

	var (
		mu      sync.Mutex
		reloads []*Config
		errs    []error
	)
	w, err := Watch(path, func(c *Config) {
		mu.Lock()
		reloads = append(reloads, c)
		mu.Unlock()
	}, WithReloadDelay(20*time.Millisecond), WithErrorHandler(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}))
	require.NoError(t, err)
	defer w.Close()

	write(t, dir, "other.toml", "ignored = true")
	write(t, dir, "config.toml", "[theme]\nname = \"@style/dracula\"\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloads) > 0 && reloads[len(reloads)-1].Theme.Name == "@style/dracula"
	}, 2*time.Second, 10*time.Millisecond)

	write(t, dir, "config.toml", "[theme\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
}
