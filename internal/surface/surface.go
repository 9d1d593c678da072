package surface

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dshills/vscripting/internal/activation"
	"github.com/dshills/vscripting/internal/disposer"
	"github.com/dshills/vscripting/internal/model"
)

// ScrollUnitIncrement is the distance of one arrow-key scroll step.
const ScrollUnitIncrement = 20

// Settings are the surface knobs. They are read once at construction.
type Settings struct {
	MinScale float64
	MaxScale float64
	// MaxFitIntoScale caps every fit computation.
	MaxFitIntoScale float64
	// ScreenScalingFactor converts surface scale to display scale.
	ScreenScalingFactor float64
	// ScaleChangeThreshold is divided by ScreenScalingFactor; smaller
	// scale changes are ignored.
	ScaleChangeThreshold float64
	// FitPadding is removed from each side of the extent when fitting.
	FitPadding        int
	ZoomControls      ZoomControlsPolicy
	SmallProgressIcon bool
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		MinScale:             0,
		MaxScale:             1,
		MaxFitIntoScale:      math.Inf(1),
		ScreenScalingFactor:  1,
		ScaleChangeThreshold: 0.005,
		FitPadding:           20,
		ZoomControls:         ZoomControlsVisible,
		SmallProgressIcon:    true,
	}
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	switch {
	case s.MinScale < 0:
		return fmt.Errorf("%w: min scale %g is negative", ErrInvalidSettings, s.MinScale)
	case s.MaxScale < s.MinScale:
		return fmt.Errorf("%w: max scale %g below min scale %g", ErrInvalidSettings, s.MaxScale, s.MinScale)
	case s.ScreenScalingFactor <= 0:
		return fmt.Errorf("%w: screen scaling factor must be positive", ErrInvalidSettings)
	case s.ScaleChangeThreshold < 0:
		return fmt.Errorf("%w: negative scale change threshold", ErrInvalidSettings)
	case s.MaxFitIntoScale <= 0:
		return fmt.Errorf("%w: max fit-into scale must be positive", ErrInvalidSettings)
	case s.FitPadding < 0:
		return fmt.Errorf("%w: negative fit padding", ErrInvalidSettings)
	}
	return nil
}

// Content is what the surface displays.
type Content interface {
	// PreferredSize is the content size at scale 1.
	PreferredSize() Dimension
	// Offset is the margin kept around the scaled content.
	Offset() Dimension
}

// Scalable is implemented by surfaces that zoom.
type Scalable interface {
	Scale() float64
	SetScale(scale float64, x, y int) bool
	Zoom(kind ZoomType, x, y int) bool
}

// Pannable is implemented by surfaces that scroll.
type Pannable interface {
	ScrollPosition() Point
	SetScrollPosition(p Point)
	Viewport() Viewport
}

var (
	_ Scalable = (*Surface)(nil)
	_ Pannable = (*Surface)(nil)
)

// Surface is the zoomable, pannable area a model is shown on.
//
// mu guards scale and model state. The listener sets have their own locks
// and are never notified while mu is held.
type Surface struct {
	settings Settings
	viewport Viewport
	content  Content
	logger   *slog.Logger
	hooks    HoverHooks
	progress *Progress

	mu               sync.Mutex
	scale            float64
	model            *model.Model
	handle           activation.Handle
	table            *activation.Table
	active           bool
	accessoryVisible bool
	disposed         bool
	zoomControls     *ZoomControls
	removeHover      func()

	panZoom   listenerSet[PanZoomListener]
	listeners listenerSet[Listener]
}

// Option configures a Surface.
type Option func(*Surface)

// WithHoverHooks sets where auto-hide zoom controls register their hover
// listener.
func WithHoverHooks(h HoverHooks) Option {
	return func(s *Surface) {
		s.hooks = h
	}
}

// WithLogger sets the surface logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIndicators sets the progress indicator factory.
func WithIndicators(f IndicatorFactory) Option {
	return func(s *Surface) {
		s.progress = NewProgress(f, s.settings.SmallProgressIcon)
	}
}

// New creates a surface at scale 1. If parent is non-nil the surface is
// disposed together with it.
func New(parent disposer.Disposable, vp Viewport, content Content, settings Settings, opts ...Option) *Surface {
	if vp == nil || content == nil {
		panic("surface: viewport and content are required")
	}
	s := &Surface{
		settings: settings,
		viewport: vp,
		content:  content,
		logger:   slog.New(slog.DiscardHandler),
		scale:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.progress == nil {
		s.progress = NewProgress(nil, settings.SmallProgressIcon)
	}

	if settings.ZoomControls != ZoomControlsHidden {
		s.zoomControls = newZoomControls(settings.ZoomControls, vp.ViewRect, func(visible bool) {
			s.logger.Debug("zoom controls visibility changed", "visible", visible)
		})
		if settings.ZoomControls == ZoomControlsAutoHide && s.hooks != nil {
			s.removeHover = s.hooks.AddHoverListener(s.zoomControls.handleHover)
		}
	}

	vp.AddChangeListener(s.viewportChanged)
	s.revalidate(s.scale)

	if parent != nil {
		disposer.Register(parent, s)
	}
	return s
}

// Settings returns the surface settings.
func (s *Surface) Settings() Settings {
	return s.settings
}

// Viewport implements Pannable.
func (s *Surface) Viewport() Viewport {
	return s.viewport
}

// Content returns the displayed content.
func (s *Surface) Content() Content {
	return s.content
}

// Progress returns the progress panel.
func (s *Surface) Progress() *Progress {
	return s.progress
}

// ZoomControls returns the zoom controls, or nil when the policy is hidden.
func (s *Surface) ZoomControls() *ZoomControls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomControls
}

// Scale implements Scalable.
func (s *Surface) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// ZoomLevel returns the current zoom percentage.
func (s *Surface) ZoomLevel() float64 {
	return ZoomLevel(s.Scale(), s.settings.ScreenScalingFactor)
}

func (s *Surface) threshold() float64 {
	return s.settings.ScaleChangeThreshold / s.settings.ScreenScalingFactor
}

func (s *Surface) clampScale(scale float64) float64 {
	return math.Max(s.settings.MinScale, math.Min(s.settings.MaxScale, scale))
}

// SetScale implements Scalable. The scale is clamped to the configured
// range; changes below the threshold are ignored and report false. x and y
// are the extent point kept stationary, or the extent center when negative.
func (s *Surface) SetScale(scale float64, x, y int) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	clamped := s.clampScale(scale)
	previous := s.scale
	if math.Abs(clamped-previous) < s.threshold() {
		s.mu.Unlock()
		return false
	}
	s.scale = clamped
	s.mu.Unlock()

	anchor := s.anchor(x, y)
	pos := s.viewport.ViewPosition()
	// content point under the anchor before the change
	cx := float64(pos.X+anchor.X) / previous
	cy := float64(pos.Y+anchor.Y) / previous

	s.revalidate(clamped)
	if previous > 0 {
		s.SetScrollPosition(Point{
			X: int(math.Round(cx*clamped)) - anchor.X,
			Y: int(math.Round(cy*clamped)) - anchor.Y,
		})
	}

	s.logger.Debug("scale changed", "previous", previous, "scale", clamped)
	s.NotifyScaleChanged(previous, clamped)
	return true
}

func (s *Surface) anchor(x, y int) Point {
	extent := s.viewport.ExtentSize()
	if x < 0 {
		x = extent.Width / 2
	}
	if y < 0 {
		y = extent.Height / 2
	}
	return Point{X: x, Y: y}
}

type viewSizer interface {
	SetViewSize(Dimension)
}

// revalidate resizes the scroll area to the scaled content.
func (s *Surface) revalidate(scale float64) {
	vs, ok := s.viewport.(viewSizer)
	if !ok {
		return
	}
	size := s.content.PreferredSize()
	off := s.content.Offset()
	extent := s.viewport.ExtentSize()
	vs.SetViewSize(Dimension{
		Width:  max(extent.Width, int(math.Ceil(float64(size.Width)*scale))+2*off.Width),
		Height: max(extent.Height, int(math.Ceil(float64(size.Height)*scale))+2*off.Height),
	})
}

// Zoom implements Scalable. An unknown kind panics.
func (s *Surface) Zoom(kind ZoomType, x, y int) bool {
	ssf := s.settings.ScreenScalingFactor
	switch kind {
	case ZoomIn:
		next := NextZoomLevel(ZoomLevel(s.Scale(), ssf))
		return s.SetScale(ScaleForZoomLevel(next, ssf), x, y)
	case ZoomOut:
		prev := PreviousZoomLevel(ZoomLevel(s.Scale(), ssf))
		return s.SetScale(ScaleForZoomLevel(prev, ssf), x, y)
	case ZoomActual:
		return s.SetScale(1/ssf, x, y)
	case ZoomFit, ZoomFitInto:
		return s.SetScale(s.FitScale(s.content.PreferredSize(), kind == ZoomFitInto), x, y)
	default:
		panic(fmt.Sprintf("surface: unsupported zoom type %v", kind))
	}
}

// FitScale returns the largest scale at which size fits the extent minus
// the fit padding. With fitInto the result never exceeds 100%.
func (s *Surface) FitScale(size Dimension, fitInto bool) float64 {
	extent := s.viewport.ExtentSize()
	pad := 2 * s.settings.FitPadding
	avail := Dimension{Width: max(0, extent.Width-pad), Height: max(0, extent.Height-pad)}
	return FitScale(avail, size, fitInto, s.settings)
}

// FitScale computes the fit scale of content inside avail.
func FitScale(avail, content Dimension, fitInto bool, settings Settings) float64 {
	scaleX, scaleY := 1.0, 1.0
	if content.Width != 0 {
		scaleX = float64(avail.Width) / float64(content.Width)
	}
	if content.Height != 0 {
		scaleY = float64(avail.Height) / float64(content.Height)
	}
	scale := math.Min(scaleX, scaleY)
	if fitInto {
		scale = math.Min(scale, 1/settings.ScreenScalingFactor)
	}
	return math.Min(scale, settings.MaxFitIntoScale)
}

// CanZoomIn reports whether ZoomIn would change the scale.
func (s *Surface) CanZoomIn() bool {
	return s.Scale() < s.settings.MaxScale-s.threshold()
}

// CanZoomOut reports whether ZoomOut would change the scale.
func (s *Surface) CanZoomOut() bool {
	scale := s.Scale()
	return scale > s.settings.MinScale+s.threshold() && scale > s.threshold()
}

// CanZoomToFit reports whether there is content to fit.
func (s *Surface) CanZoomToFit() bool {
	size := s.content.PreferredSize()
	return size.Width > 0 && size.Height > 0
}

// CanZoomToActual reports whether ZoomActual would change the scale.
func (s *Surface) CanZoomToActual() bool {
	actual := s.clampScale(1 / s.settings.ScreenScalingFactor)
	return math.Abs(s.Scale()-actual) >= s.threshold()
}

// ScrollPosition implements Pannable.
func (s *Surface) ScrollPosition() Point {
	return s.viewport.ViewPosition()
}

// SetScrollPosition implements Pannable. p is clamped to the scrollable
// range.
func (s *Surface) SetScrollPosition(p Point) {
	view := s.viewport.ViewSize()
	extent := s.viewport.ExtentSize()
	s.viewport.SetViewPosition(clampScroll(p, view, extent))
}

func clampScroll(p Point, view, extent Dimension) Point {
	p.X = max(0, p.X)
	p.Y = max(0, p.Y)
	p.X = min(p.X, max(0, view.Width-extent.Width))
	p.Y = min(p.Y, max(0, view.Height-extent.Height))
	return p
}

// ScrollBy moves the view by dx, dy units of ScrollUnitIncrement.
func (s *Surface) ScrollBy(dx, dy int) {
	p := s.ScrollPosition()
	s.SetScrollPosition(Point{X: p.X + dx*ScrollUnitIncrement, Y: p.Y + dy*ScrollUnitIncrement})
}

func (s *Surface) viewportChanged() {
	s.NotifyPanningChanged(PanEvent{
		Position: s.viewport.ViewPosition(),
		Extent:   s.viewport.ExtentSize(),
		View:     s.viewport.ViewSize(),
	})
}

// ExtentResized revalidates the scroll area after the host resized the
// viewport.
func (s *Surface) ExtentResized() {
	s.revalidate(s.Scale())
	s.SetScrollPosition(s.ScrollPosition())
}

// Model returns the displayed model, or nil.
func (s *Surface) Model() *model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel replaces the displayed model. While the surface is active it
// keeps its model activated.
func (s *Surface) SetModel(m *model.Model) {
	s.mu.Lock()
	if s.disposed || s.model == m {
		s.mu.Unlock()
		return
	}
	old, oldHandle, oldTable, active := s.model, s.handle, s.table, s.active
	s.model = m
	s.handle = activation.Handle{}
	s.table = nil
	if m != nil {
		s.table = m.ActivationTable()
		s.handle = s.table.Acquire(fmt.Sprintf("surface for %s", m.File().Name()))
	}
	handle := s.handle
	s.mu.Unlock()

	if old != nil {
		if active {
			old.Deactivate(oldHandle)
		}
		oldTable.Release(oldHandle)
	}
	if m != nil && active {
		m.Activate(handle)
	}
	s.notifyModelChanged(m)
}

// Activate marks the surface as showing and activates its model.
func (s *Surface) Activate() {
	s.mu.Lock()
	if s.disposed || s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	m, h := s.model, s.handle
	s.mu.Unlock()
	if m != nil {
		m.Activate(h)
	}
}

// Deactivate marks the surface as hidden and deactivates its model.
func (s *Surface) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	m, h := s.model, s.handle
	s.mu.Unlock()
	if m != nil {
		m.Deactivate(h)
	}
}

// IsActive reports whether the surface is showing.
func (s *Surface) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// AccessoryPanelVisible reports whether the accessory panel is shown.
func (s *Surface) AccessoryPanelVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessoryVisible
}

// SetAccessoryPanelVisible shows or hides the accessory panel.
func (s *Surface) SetAccessoryPanelVisible(visible bool) {
	s.mu.Lock()
	if s.disposed || s.accessoryVisible == visible {
		s.mu.Unlock()
		return
	}
	s.accessoryVisible = visible
	s.mu.Unlock()
	s.notifyAccessoryPanelVisibility(visible)
}

// RestoreZoom would restore the zoom level stored for the model file. Zoom
// levels are not persisted, so it always reports false.
func (s *Surface) RestoreZoom() bool {
	return false
}

// StoreZoom would persist the zoom level for the model file. It does
// nothing.
func (s *Surface) StoreZoom() {}

// IsDisposed reports whether Dispose has run.
func (s *Surface) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose clears all listeners, removes the hover hook and lets go of the
// model.
func (s *Surface) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	removeHover := s.removeHover
	s.removeHover = nil
	m, h, table, active := s.model, s.handle, s.table, s.active
	s.model = nil
	s.active = false
	s.mu.Unlock()

	s.panZoom.clear()
	s.listeners.clear()
	if removeHover != nil {
		removeHover()
	}
	s.progress.Hide()
	if m != nil {
		if active {
			m.Deactivate(h)
		}
		table.Release(h)
	}
}

func (s *Surface) String() string {
	return fmt.Sprintf("Surface(scale=%.3f)", s.Scale())
}
