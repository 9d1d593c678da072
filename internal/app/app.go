package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/vscripting/internal/config"
	"github.com/dshills/vscripting/internal/controller"
	"github.com/dshills/vscripting/internal/disposer"
	"github.com/dshills/vscripting/internal/host"
	"github.com/dshills/vscripting/internal/model"
	"github.com/dshills/vscripting/internal/source"
	"github.com/dshills/vscripting/internal/surface"
	"github.com/dshills/vscripting/internal/theme"
	"github.com/dshills/vscripting/internal/uiexec"
)

// progressKey hides the progress indicator in the same flush that starts a
// refresh.
const progressKey = "progress"

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty uses the defaults and
	// disables live reload.
	ConfigPath string
	// LogLevel overrides the configured log level.
	LogLevel string
	// LogOutput receives log lines when no log file is configured.
	LogOutput io.Writer
	// Files are the files to open. Only the first is shown.
	Files []string
}

// Application owns every long-lived component.
type Application struct {
	opts      Options
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer

	executor      *uiexec.Executor
	pool          *uiexec.Pool
	cache         *theme.ResolverCache
	configuration *theme.Configuration
	scope         *disposer.Scope

	file        *source.File
	content     *pageContent
	notifier    *source.Notifier
	unsubscribe func()
	watcher     *config.Watcher

	model    *model.Model
	viewport *surface.ScrollableViewport
	surface  *surface.Surface
	toolbar  *controller.Toolbar
	hover    *surface.HoverRegistry

	palette atomic.Pointer[host.Palette]
	host    atomic.Pointer[host.Host]
	running atomic.Bool
	once    sync.Once
}

// New loads the configuration and builds the application.
func New(opts Options) (*Application, error) {
	if len(opts.Files) == 0 {
		return nil, ErrNoFile
	}
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, NewOperationError("load config", opts.ConfigPath, err)
		}
		cfg = loaded
	}

	logger, closer, err := NewLogger(cfg.Log, opts.LogLevel, opts.LogOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	a := &Application{opts: opts, cfg: cfg, logger: logger, logCloser: closer}
	if err := a.build(); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	return a, nil
}

func (a *Application) build() error {
	cfg := a.cfg
	a.executor = uiexec.NewExecutor(uiexec.WithLogger(a.logger.With("component", "executor")))
	a.pool = uiexec.NewPool(uiexec.WithWorkers(cfg.Model.Workers), uiexec.WithPoolLogger(a.logger.With("component", "pool")))
	a.cache = theme.NewResolverCache(cfg.Theme.StylesDir, theme.WithCacheLogger(a.logger.With("component", "themes")))

	var pref theme.Preference = theme.PreferredByBackground{}
	if cfg.Theme.Script != "" {
		pref = theme.NewLuaPreference(cfg.Theme.Script, pref, a.logger.With("component", "lua"))
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}
	a.configuration = theme.NewConfiguration(&theme.Manager{Cache: a.cache, Preference: pref}, cfg.Theme.Name, bg, a.opts.ConfigPath)

	a.file, err = source.NewFile(a.opts.Files[0])
	if err != nil {
		return err
	}
	a.content = newPageContent(a.file.Path())
	if err := a.content.Measure(); err != nil {
		return NewOperationError("read", a.file.Path(), err)
	}

	a.scope = disposer.NewScope("application")
	a.model = model.New(a.scope, a.file, a.configuration,
		model.Runtime{Invoker: a.executor, Background: a.pool},
		model.WithDisplayName(a.file.Name()),
		model.WithTooltip(a.file.Path()),
		model.WithDelay(cfg.Model.DelayAfterTyping.Std()),
		model.WithRestartTimerOnAdd(cfg.Model.RestartTimerOnAdd),
		model.WithLogger(a.logger),
		model.WithHooks(model.Hooks{
			OnThemeApplied: func(*model.Model, string) { a.refreshPalette() },
		}))

	settings, err := cfg.SurfaceSettings()
	if err != nil {
		return err
	}
	a.hover = surface.NewHoverRegistry()
	a.viewport = surface.NewScrollableViewport(surface.Dimension{})
	a.surface = surface.New(a.scope, a.viewport, a.content, settings,
		surface.WithHoverHooks(a.hover),
		surface.WithLogger(a.logger.With("component", "surface")))
	a.toolbar = controller.New(a.surface, controller.WithLogger(a.logger))
	a.toolbar.Attach()
	disposer.Register(a.scope, a.toolbar)

	a.notifier, err = source.NewNotifier(
		source.WithSettle(cfg.Model.Settle.Std()),
		source.WithLogger(a.logger.With("component", "source")))
	if err != nil {
		return err
	}
	if err := a.notifier.Watch(a.file); err != nil {
		// the file may not exist yet
		a.logger.Warn("not watching source", "file", a.file.Path(), "error", err)
	}
	a.unsubscribe = a.notifier.Subscribe(a.sourceChanged)

	if a.opts.ConfigPath != "" {
		a.watcher, err = config.Watch(a.opts.ConfigPath, a.configChanged,
			config.WithWatchLogger(a.logger.With("component", "config")),
			config.WithErrorHandler(func(err error) {
				a.logger.Warn("keeping previous configuration", "error", err)
			}))
		if err != nil {
			return err
		}
	}

	a.palette.Store(&host.Palette{Theme: cfg.Theme.Name, Background: bg, Foreground: bg.BlendLab(contrast(bg), 0.85)})
	return nil
}

// Model returns the model of the open file.
func (a *Application) Model() *model.Model {
	return a.model
}

// Surface returns the surface the model is shown on.
func (a *Application) Surface() *surface.Surface {
	return a.surface
}

// Configuration returns the theme configuration.
func (a *Application) Configuration() *theme.Configuration {
	return a.configuration
}

// Run shows the file on screen until the user quits or ctx is done. A quit
// by the user is not an error.
func (a *Application) Run(ctx context.Context, screen tcell.Screen) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	h := host.New(screen, a.surface, a.viewport, a.toolbar, a.hover,
		host.WithPalette(a.currentPalette),
		host.WithLogger(a.logger.With("component", "host")))
	if err := h.Init(); err != nil {
		return NewOperationError("init screen", "", err)
	}
	defer h.Fini()
	a.host.Store(h)

	a.Start()
	err := h.Run(ctx)
	if errors.Is(err, host.ErrQuit) {
		return nil
	}
	return err
}

// Start binds the model to the surface and schedules the first refresh.
// Run calls it; it is exported for running without a screen.
func (a *Application) Start() {
	a.executor.InvokeLater(func() {
		a.surface.SetModel(a.model)
		a.surface.Activate()
		a.model.ScheduleRefresh()
	}, nil)
	a.refreshPalette()
}

func (a *Application) sourceChanged(ev source.Event) {
	a.executor.InvokeLater(func() {
		switch ev.Kind {
		case source.EditStarted:
			a.surface.Progress().Show()
		case source.EditCommitted:
			if err := a.content.Measure(); err != nil {
				a.logger.Warn("measure source", "file", ev.File.Path(), "error", err)
			}
			a.surface.ExtentResized()
			a.model.ScheduleRefresh()
			a.model.UpdateQueue().Schedule(progressKey, func() {
				a.surface.Progress().Hide()
				a.redraw()
			})
		case source.Removed:
			a.surface.Progress().Hide()
			a.logger.Warn("source removed", "file", ev.File.Path())
		}
		a.redraw()
	}, a.model.IsDisposed)
}

func (a *Application) configChanged(cfg *config.Config) {
	a.executor.InvokeLater(func() {
		// project styles may have been edited alongside the config
		a.cache.Clear()
		if bg, err := cfg.BackgroundColor(); err == nil {
			a.configuration.SetBackground(bg)
		}
		a.configuration.SetTheme(cfg.Theme.Name)
		a.model.UpdateQueue().SetRestartTimerOnAdd(cfg.Model.RestartTimerOnAdd)
		if s, err := cfg.SurfaceSettings(); err == nil && s != a.surface.Settings() {
			a.logger.Info("surface settings change on restart")
		}
		if a.model.IsActive() {
			a.model.ScheduleRefresh()
		}
		a.refreshPalette()
	}, a.model.IsDisposed)
}

func (a *Application) currentPalette() host.Palette {
	return *a.palette.Load()
}

// refreshPalette resolves the configured theme off the executor and
// redraws with it.
func (a *Application) refreshPalette() {
	name := a.configuration.Theme()
	key := theme.CacheKey{Theme: name, Config: a.configuration.Key()}
	err := a.pool.Submit(func(ctx context.Context) {
		pal := host.Palette{Theme: name, Background: a.configuration.Background()}
		pal.Foreground = pal.Background.BlendLab(contrast(pal.Background), 0.85)
		if url, ok := theme.ParseURL(name); ok {
			if r, err := a.cache.Resolver(key); err == nil {
				if st := r.Theme(url.Name, url.IsFramework()); st != nil {
					pal.Background, pal.Foreground = st.Background, st.Foreground
				}
			}
		}
		a.palette.Store(&pal)
		a.redraw()
	})
	if err != nil {
		a.logger.Debug("palette not refreshed", "error", err)
	}
}

func (a *Application) redraw() {
	if h := a.host.Load(); h != nil {
		h.Redraw()
	}
}

// Shutdown releases every component. It is safe to call more than once.
func (a *Application) Shutdown() {
	a.once.Do(func() {
		if a.watcher != nil {
			_ = a.watcher.Close()
		}
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		if a.notifier != nil {
			_ = a.notifier.Close()
		}
		if a.scope != nil {
			disposer.Dispose(a.scope)
			for _, d := range []disposer.Disposable{a.toolbar, a.surface, a.model, a.scope} {
				disposer.Forget(d)
			}
		}
		if a.pool != nil {
			a.pool.Close()
		}
		if a.executor != nil {
			a.executor.Close()
		}
		if a.logCloser != nil {
			_ = a.logCloser.Close()
		}
	})
}
