// Package controller holds the collaborators that react to surface
// changes: the toolbar showing the zoom level and the enabled state of the
// zoom actions.
package controller

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dshills/vscripting/internal/model"
	"github.com/dshills/vscripting/internal/surface"
)

// Action is a zoom action the toolbar exposes.
type Action struct {
	Kind    surface.ZoomType
	Label   string
	Enabled bool
}

// State is a snapshot of what the toolbar shows.
type State struct {
	ZoomLabel     string
	Title         string
	Tooltip       string
	AccessoryOpen bool
	Position      surface.Point
	Actions       []Action
}

// Toolbar tracks a surface and exposes its zoom state.
type Toolbar struct {
	surface  *surface.Surface
	logger   *slog.Logger
	onChange func(State)

	mu    sync.Mutex
	state State
}

// Option configures a Toolbar.
type Option func(*Toolbar)

// WithLogger sets the toolbar logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Toolbar) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithOnChange sets a callback run after every state update.
func WithOnChange(fn func(State)) Option {
	return func(t *Toolbar) {
		t.onChange = fn
	}
}

var (
	_ surface.PanZoomListener = (*Toolbar)(nil)
	_ surface.Listener        = (*Toolbar)(nil)
)

// New creates a toolbar for s. It is not registered until Attach.
func New(s *surface.Surface, opts ...Option) *Toolbar {
	t := &Toolbar{
		surface: s,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.refresh(func(st *State) {
		st.Position = s.ScrollPosition()
		st.AccessoryOpen = s.AccessoryPanelVisible()
		if m := s.Model(); m != nil {
			st.Title, st.Tooltip = modelLabels(m)
		}
	})
	return t
}

// Attach registers the toolbar with its surface.
func (t *Toolbar) Attach() {
	t.surface.AddPanZoomListener(t)
	t.surface.AddListener(t)
}

// Detach unregisters the toolbar.
func (t *Toolbar) Detach() {
	t.surface.RemovePanZoomListener(t)
	t.surface.RemoveListener(t)
}

// Dispose implements disposer.Disposable.
func (t *Toolbar) Dispose() {
	t.Detach()
}

// State returns the current toolbar state.
func (t *Toolbar) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state
	st.Actions = append([]Action(nil), t.state.Actions...)
	return st
}

// Perform runs the zoom action kind at the surface center.
func (t *Toolbar) Perform(kind surface.ZoomType) bool {
	return t.surface.Zoom(kind, -1, -1)
}

// ScaleChanged implements surface.PanZoomListener.
func (t *Toolbar) ScaleChanged(previous, current float64) {
	t.logger.Debug("zoom", "previous", previous, "current", current)
	t.refresh(nil)
}

// PanningChanged implements surface.PanZoomListener.
func (t *Toolbar) PanningChanged(ev surface.PanEvent) {
	t.refresh(func(st *State) {
		st.Position = ev.Position
	})
}

// ModelChanged implements surface.Listener.
func (t *Toolbar) ModelChanged(_ *surface.Surface, m *model.Model) {
	t.refresh(func(st *State) {
		st.Title, st.Tooltip = "", ""
		if m != nil {
			st.Title, st.Tooltip = modelLabels(m)
		}
	})
}

// AccessoryPanelVisibilityChanged implements surface.Listener.
func (t *Toolbar) AccessoryPanelVisibilityChanged(_ *surface.Surface, visible bool) {
	t.refresh(func(st *State) {
		st.AccessoryOpen = visible
	})
}

func (t *Toolbar) refresh(update func(*State)) {
	s := t.surface
	actions := []Action{
		{Kind: surface.ZoomOut, Label: "-", Enabled: s.CanZoomOut()},
		{Kind: surface.ZoomIn, Label: "+", Enabled: s.CanZoomIn()},
		{Kind: surface.ZoomActual, Label: "1:1", Enabled: s.CanZoomToActual()},
		{Kind: surface.ZoomFit, Label: "fit", Enabled: s.CanZoomToFit()},
	}
	label := FormatZoom(s.ZoomLevel())

	t.mu.Lock()
	if update != nil {
		update(&t.state)
	}
	t.state.ZoomLabel = label
	t.state.Actions = actions
	st := t.state
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(st)
	}
}

func modelLabels(m *model.Model) (title, tooltip string) {
	title = m.DisplayName()
	if title == "" {
		title = m.File().Name()
	}
	return title, m.Tooltip()
}

// FormatZoom renders a zoom percentage the way the toolbar shows it.
func FormatZoom(percent float64) string {
	if percent < 10 && percent != math.Trunc(percent) {
		return fmt.Sprintf("%.1f%%", percent)
	}
	return fmt.Sprintf("%d%%", int(math.Round(percent)))
}

// String renders the state as a status line.
func (st State) String() string {
	line := st.ZoomLabel
	if st.Title != "" {
		line = st.Title + "  " + line
	}
	for _, a := range st.Actions {
		mark := " "
		if a.Enabled {
			mark = "*"
		}
		line += fmt.Sprintf("  [%s%s]", a.Label, mark)
	}
	return line
}
