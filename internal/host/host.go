// Package host runs a surface in a terminal.
//
// The terminal is the container: its size is the viewport extent (minus
// the status line), keys drive zoom and panning and mouse motion feeds the
// hover hooks used by auto-hiding zoom controls.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/vscripting/internal/controller"
	"github.com/dshills/vscripting/internal/surface"
)

// ErrQuit is returned by Run when the user quits.
var ErrQuit = errors.New("quit requested")

// statusLines is the number of rows below the surface.
const statusLines = 1

// spinnerInterval is the progress animation period.
const spinnerInterval = 100 * time.Millisecond

// Palette is what the host draws with.
type Palette struct {
	Theme      string
	Background colorful.Color
	Foreground colorful.Color
}

type redraw struct{}

type quit struct{}

// Host connects a tcell screen to a surface.
type Host struct {
	screen   tcell.Screen
	surface  *surface.Surface
	viewport *surface.ScrollableViewport
	toolbar  *controller.Toolbar
	hover    *surface.HoverRegistry
	palette  func() Palette
	logger   *slog.Logger

	mu     sync.Mutex
	inside bool
}

// Option configures a Host.
type Option func(*Host)

// WithPalette sets the palette source. It is called on every draw.
func WithPalette(fn func() Palette) Option {
	return func(h *Host) {
		h.palette = fn
	}
}

// WithLogger sets the host logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewScreen creates the terminal screen.
func NewScreen() (tcell.Screen, error) {
	return tcell.NewScreen()
}

// New creates a host. The screen is initialized by Init.
func New(screen tcell.Screen, s *surface.Surface, vp *surface.ScrollableViewport, tb *controller.Toolbar, hover *surface.HoverRegistry, opts ...Option) *Host {
	h := &Host{
		screen:   screen,
		surface:  s,
		viewport: vp,
		toolbar:  tb,
		hover:    hover,
		logger:   slog.New(slog.DiscardHandler),
		palette: func() Palette {
			return Palette{
				Background: colorful.Color{R: 0.12, G: 0.12, B: 0.12},
				Foreground: colorful.Color{R: 0.9, G: 0.9, B: 0.9},
			}
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init initializes the screen and sizes the viewport.
func (h *Host) Init() error {
	if err := h.screen.Init(); err != nil {
		return err
	}
	h.screen.EnableMouse()
	h.resize(h.screen.Size())
	return nil
}

// Fini restores the terminal.
func (h *Host) Fini() {
	h.screen.Fini()
}

// Redraw asks the event loop to draw. It is safe to call from any
// goroutine.
func (h *Host) Redraw() {
	_ = h.screen.PostEvent(tcell.NewEventInterrupt(redraw{})) // best-effort; queue may be full
}

// Run processes events until the user quits or ctx is done. It returns
// ErrQuit when the user quit.
func (h *Host) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = h.screen.PostEvent(tcell.NewEventInterrupt(quit{}))
		case <-stop:
		}
	}()
	go h.animate(stop)

	h.Draw()
	for {
		ev := h.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if ie, ok := ev.(*tcell.EventInterrupt); ok {
			if _, stop := ie.Data().(quit); stop {
				return ctx.Err()
			}
		}
		if !h.HandleEvent(ev) {
			return ErrQuit
		}
	}
}

func (h *Host) animate(stop <-chan struct{}) {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if sp, ok := h.spinner(); ok {
				sp.Tick()
				h.Redraw()
			}
		}
	}
}

// spinner returns the visible progress spinner, if any.
func (h *Host) spinner() (*surface.Spinner, bool) {
	p := h.surface.Progress()
	if !p.Visible() {
		return nil, false
	}
	sp, ok := p.Installed().(*surface.Spinner)
	return sp, ok
}

// HandleEvent applies ev and redraws. It returns false when ev asks to
// quit.
func (h *Host) HandleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventResize:
		h.resize(e.Size())
	case *tcell.EventKey:
		if !h.key(e) {
			return false
		}
	case *tcell.EventMouse:
		x, y := e.Position()
		h.mouse(surface.Point{X: x, Y: y})
	case *tcell.EventInterrupt:
	default:
		return true
	}
	h.Draw()
	return true
}

func (h *Host) resize(w, ht int) {
	h.viewport.SetExtentSize(surface.Dimension{Width: w, Height: max(0, ht-statusLines)})
	h.surface.ExtentResized()
	h.screen.Sync()
}

func (h *Host) key(e *tcell.EventKey) bool {
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		h.surface.ScrollBy(0, -1)
	case tcell.KeyDown:
		h.surface.ScrollBy(0, 1)
	case tcell.KeyLeft:
		h.surface.ScrollBy(-1, 0)
	case tcell.KeyRight:
		h.surface.ScrollBy(1, 0)
	case tcell.KeyRune:
		switch e.Rune() {
		case 'q':
			return false
		case '+', '=':
			h.toolbar.Perform(surface.ZoomIn)
		case '-':
			h.toolbar.Perform(surface.ZoomOut)
		case '0':
			h.toolbar.Perform(surface.ZoomActual)
		case 'f':
			h.toolbar.Perform(surface.ZoomFit)
		case 'F':
			h.toolbar.Perform(surface.ZoomFitInto)
		case 'a':
			h.surface.SetAccessoryPanelVisible(!h.surface.AccessoryPanelVisible())
		}
	}
	return true
}

// mouse turns pointer positions into enter, move and exit events.
func (h *Host) mouse(p surface.Point) {
	extent := h.viewport.ExtentSize()
	in := surface.Rectangle{Width: extent.Width, Height: extent.Height}.Contains(p)

	h.mu.Lock()
	was := h.inside
	h.inside = in
	h.mu.Unlock()

	kind := surface.HoverMove
	switch {
	case in && !was:
		kind = surface.HoverEnter
	case !in && was:
		kind = surface.HoverExit
	case !in:
		return
	}
	// hover positions are in view coordinates
	pos := h.viewport.ViewPosition()
	h.hover.Dispatch(surface.HoverEvent{Kind: kind, Position: surface.Point{X: p.X + pos.X, Y: p.Y + pos.Y}})
}
