package surface

import (
	"sync"
)

// Viewport is the visible window into the surface content. Scrollable
// surfaces expose a real scrolling viewport; non-scrollable ones are
// embedded in an outer scroller and report their own bounds.
type Viewport interface {
	// ViewRect is the visible part of the view, in view coordinates.
	ViewRect() Rectangle
	// ViewPosition is the view coordinate shown at the viewport origin.
	ViewPosition() Point
	SetViewPosition(p Point)
	// ExtentSize is the size of the visible area.
	ExtentSize() Dimension
	// ViewSize is the full content size.
	ViewSize() Dimension
	// AddChangeListener registers fn to run after the position or any size
	// changes.
	AddChangeListener(fn func())
}

// ScrollableViewport is a viewport whose geometry is pushed by the hosting
// container.
type ScrollableViewport struct {
	mu        sync.Mutex
	extent    Dimension
	view      Dimension
	position  Point
	listeners []func()
}

// NewScrollableViewport creates a viewport with the given extent.
func NewScrollableViewport(extent Dimension) *ScrollableViewport {
	return &ScrollableViewport{extent: extent, view: extent}
}

// ViewRect implements Viewport.
func (v *ScrollableViewport) ViewRect() Rectangle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Rectangle{X: v.position.X, Y: v.position.Y, Width: v.extent.Width, Height: v.extent.Height}
}

// ViewPosition implements Viewport.
func (v *ScrollableViewport) ViewPosition() Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// SetViewPosition implements Viewport. The position is stored as given;
// clamping is the surface's job.
func (v *ScrollableViewport) SetViewPosition(p Point) {
	v.mu.Lock()
	changed := v.position != p
	v.position = p
	v.mu.Unlock()
	if changed {
		v.fire()
	}
}

// ExtentSize implements Viewport.
func (v *ScrollableViewport) ExtentSize() Dimension {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.extent
}

// SetExtentSize is called by the container when it is resized.
func (v *ScrollableViewport) SetExtentSize(d Dimension) {
	v.mu.Lock()
	changed := v.extent != d
	v.extent = d
	v.mu.Unlock()
	if changed {
		v.fire()
	}
}

// ViewSize implements Viewport.
func (v *ScrollableViewport) ViewSize() Dimension {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// SetViewSize sets the content size.
func (v *ScrollableViewport) SetViewSize(d Dimension) {
	v.mu.Lock()
	changed := v.view != d
	v.view = d
	v.mu.Unlock()
	if changed {
		v.fire()
	}
}

// AddChangeListener implements Viewport.
func (v *ScrollableViewport) AddChangeListener(fn func()) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

func (v *ScrollableViewport) fire() {
	v.mu.Lock()
	listeners := append([]func(){}, v.listeners...)
	v.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// NonScrollableViewport wraps a surface that does not scroll by itself.
// Its position is always the origin and its extent is the visible part of
// the component.
type NonScrollableViewport struct {
	mu        sync.Mutex
	bounds    Rectangle
	visible   Dimension
	listeners []func()
}

// NewNonScrollableViewport creates a viewport over a component of the given
// bounds, fully visible.
func NewNonScrollableViewport(bounds Rectangle) *NonScrollableViewport {
	return &NonScrollableViewport{bounds: bounds, visible: bounds.Size()}
}

// ViewRect implements Viewport.
func (v *NonScrollableViewport) ViewRect() Rectangle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

// ViewPosition implements Viewport.
func (v *NonScrollableViewport) ViewPosition() Point {
	return Point{}
}

// SetViewPosition implements Viewport. It does nothing.
func (v *NonScrollableViewport) SetViewPosition(Point) {}

// ExtentSize implements Viewport.
func (v *NonScrollableViewport) ExtentSize() Dimension {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// ViewSize implements Viewport.
func (v *NonScrollableViewport) ViewSize() Dimension {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds.Size()
}

// Resize changes the component bounds and visible size. Listeners run only
// when the size actually changed.
func (v *NonScrollableViewport) Resize(bounds Rectangle, visible Dimension) {
	v.mu.Lock()
	resized := v.bounds.Size() != bounds.Size() || v.visible != visible
	v.bounds = bounds
	v.visible = visible
	listeners := append([]func(){}, v.listeners...)
	v.mu.Unlock()
	if resized {
		for _, fn := range listeners {
			fn()
		}
	}
}

// AddChangeListener implements Viewport.
func (v *NonScrollableViewport) AddChangeListener(fn func()) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}
