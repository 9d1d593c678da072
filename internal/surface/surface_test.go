package surface

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedContent struct {
	size   Dimension
	offset Dimension
}

func (c fixedContent) PreferredSize() Dimension { return c.size }
func (c fixedContent) Offset() Dimension        { return c.offset }

type recorder struct {
	mu      sync.Mutex
	scales  [][2]float64
	pans    []PanEvent
	onScale func()
}

func (r *recorder) ScaleChanged(previous, current float64) {
	r.mu.Lock()
	r.scales = append(r.scales, [2]float64{previous, current})
	fn := r.onScale
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *recorder) PanningChanged(ev PanEvent) {
	r.mu.Lock()
	r.pans = append(r.pans, ev)
	r.mu.Unlock()
}

func (r *recorder) scaleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scales)
}

func newTestSurface(t *testing.T, settings Settings, opts ...Option) (*Surface, *ScrollableViewport) {
	t.Helper()
	vp := NewScrollableViewport(Dimension{Width: 200, Height: 200})
	s := New(nil, vp, fixedContent{size: Dimension{Width: 1000, Height: 1000}}, settings, opts...)
	t.Cleanup(s.Dispose)
	return s, vp
}

func TestSetScrollPositionClamps(t *testing.T) {
	s, vp := newTestSurface(t, DefaultSettings())
	vp.SetViewSize(Dimension{Width: 1000, Height: 1000})

	s.SetScrollPosition(Point{X: -5, Y: 5000})
	assert.Equal(t, Point{X: 0, Y: 800}, s.ScrollPosition())

	s.SetScrollPosition(Point{X: 300, Y: 40})
	assert.Equal(t, Point{X: 300, Y: 40}, s.ScrollPosition())

	s.SetScrollPosition(Point{X: 5000, Y: -1})
	assert.Equal(t, Point{X: 800, Y: 0}, s.ScrollPosition())
}

func TestClampScrollSmallView(t *testing.T) {
	got := clampScroll(Point{X: 50, Y: 50}, Dimension{Width: 100, Height: 100}, Dimension{Width: 200, Height: 200})
	assert.Equal(t, Point{}, got)
}

func TestSetScaleClampsAndIgnoresJitter(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	rec := &recorder{}
	s.AddPanZoomListener(rec)

	assert.False(t, s.SetScale(1.5, -1, -1), "already at max scale")
	assert.False(t, s.SetScale(1.002, -1, -1))

	require.True(t, s.SetScale(0.5, -1, -1))
	assert.InDelta(t, 0.5, s.Scale(), 1e-9)
	assert.False(t, s.SetScale(0.5, -1, -1))
	assert.False(t, s.SetScale(0.503, -1, -1))
	assert.True(t, s.SetScale(-3, -1, -1))
	assert.False(t, s.SetScale(-3, -1, -1))
	assert.InDelta(t, 0, s.Scale(), 1e-9)

	require.Equal(t, 2, rec.scaleCount())
	assert.Equal(t, [2]float64{1, 0.5}, rec.scales[0])
	assert.Equal(t, [2]float64{0.5, 0}, rec.scales[1])
}

func TestSetScaleThresholdUsesScreenScalingFactor(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxScale = 4
	settings.ScreenScalingFactor = 2
	s, _ := newTestSurface(t, settings)

	// threshold is 0.0025
	assert.False(t, s.SetScale(1.002, -1, -1))
	assert.True(t, s.SetScale(1.003, -1, -1))
}

func TestSetScaleRevalidatesViewSize(t *testing.T) {
	s, vp := newTestSurface(t, DefaultSettings())
	assert.Equal(t, Dimension{Width: 1000, Height: 1000}, vp.ViewSize())

	require.True(t, s.SetScale(0.5, -1, -1))
	assert.Equal(t, Dimension{Width: 500, Height: 500}, vp.ViewSize())

	require.True(t, s.SetScale(0.1, -1, -1))
	assert.Equal(t, Dimension{Width: 200, Height: 200}, vp.ViewSize(), "view never smaller than extent")
}

func TestSetScaleKeepsAnchor(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	s.SetScrollPosition(Point{X: 400, Y: 400})

	require.True(t, s.SetScale(0.5, 0, 0))
	assert.Equal(t, Point{X: 200, Y: 200}, s.ScrollPosition())

	require.True(t, s.SetScale(1, -1, -1))
	// content point (600,600) stays under the extent center
	assert.Equal(t, Point{X: 500, Y: 500}, s.ScrollPosition())
}

func TestZoomSteps(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxScale = 4
	s, _ := newTestSurface(t, settings)

	require.True(t, s.Zoom(ZoomIn, -1, -1))
	assert.InDelta(t, 1.10, s.Scale(), 1e-9)
	require.True(t, s.Zoom(ZoomOut, -1, -1))
	assert.InDelta(t, 1.0, s.Scale(), 1e-9)
	require.True(t, s.Zoom(ZoomOut, -1, -1))
	assert.InDelta(t, 0.9, s.Scale(), 1e-9)
	require.True(t, s.Zoom(ZoomActual, -1, -1))
	assert.InDelta(t, 1.0, s.Scale(), 1e-9)
	assert.False(t, s.Zoom(ZoomActual, -1, -1))
}

func TestZoomInStopsAtMaxScale(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	assert.False(t, s.CanZoomIn())
	assert.False(t, s.Zoom(ZoomIn, -1, -1))
	assert.True(t, s.CanZoomOut())
}

func TestZoomFit(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxScale = 4
	s, _ := newTestSurface(t, settings)

	require.True(t, s.Zoom(ZoomFit, -1, -1))
	// (200 - 2*20) / 1000
	assert.InDelta(t, 0.16, s.Scale(), 1e-9)
}

func TestZoomUnsupportedPanics(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	assert.Panics(t, func() { s.Zoom(ZoomType(42), -1, -1) })
}

func TestFitScale(t *testing.T) {
	settings := DefaultSettings()
	content := Dimension{Width: 400, Height: 200}

	assert.InDelta(t, 0.5, FitScale(Dimension{Width: 200, Height: 200}, content, false, settings), 1e-9)
	assert.InDelta(t, 2.0, FitScale(Dimension{Width: 800, Height: 800}, content, false, settings), 1e-9)
	assert.InDelta(t, 1.0, FitScale(Dimension{Width: 800, Height: 800}, content, true, settings), 1e-9)
	assert.InDelta(t, 1.0, FitScale(Dimension{Width: 300, Height: 300}, Dimension{}, false, settings), 1e-9)

	settings.MaxFitIntoScale = 0.25
	assert.InDelta(t, 0.25, FitScale(Dimension{Width: 800, Height: 800}, content, false, settings), 1e-9)

	settings.MaxFitIntoScale = math.Inf(1)
	settings.ScreenScalingFactor = 2
	assert.InDelta(t, 0.5, FitScale(Dimension{Width: 800, Height: 800}, content, true, settings), 1e-9)
}

func TestFitScaleMonotonic(t *testing.T) {
	for _, ssf := range []float64{1, 1.5, 2} {
		settings := DefaultSettings()
		settings.ScreenScalingFactor = ssf
		content := Dimension{Width: 640, Height: 480}
		for _, fitInto := range []bool{false, true} {
			prev := -1.0
			for w := 0; w <= 2000; w += 37 {
				got := FitScale(Dimension{Width: w, Height: w * 3 / 4}, content, fitInto, settings)
				require.GreaterOrEqual(t, got, prev)
				if fitInto {
					require.LessOrEqual(t, got, 1/ssf)
				}
				prev = got
			}
		}
	}
}

type selfRemover struct {
	s     *Surface
	calls int
}

func (r *selfRemover) ScaleChanged(float64, float64) {
	r.calls++
	r.s.RemovePanZoomListener(r)
}

func (r *selfRemover) PanningChanged(PanEvent) {}

func TestListenerRemovesItselfDuringDispatch(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	first := &recorder{}
	remover := &selfRemover{s: s}
	last := &recorder{}
	s.AddPanZoomListener(first)
	s.AddPanZoomListener(remover)
	s.AddPanZoomListener(last)

	s.NotifyScaleChanged(1, 0.5)
	s.NotifyScaleChanged(0.5, 0.25)

	assert.Equal(t, 2, first.scaleCount())
	assert.Equal(t, 1, remover.calls)
	assert.Equal(t, 2, last.scaleCount())
}

func TestListenerAddedDuringDispatchWaitsForNextRound(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	late := &recorder{}
	adder := &recorder{}
	adder.onScale = func() { s.AddPanZoomListener(late) }
	s.AddPanZoomListener(adder)

	s.NotifyScaleChanged(1, 0.5)
	assert.Equal(t, 0, late.scaleCount())
	s.NotifyScaleChanged(0.5, 0.25)
	assert.Equal(t, 1, late.scaleCount())
}

func TestAddingTwiceKeepsFirstPosition(t *testing.T) {
	var set listenerSet[int]
	set.add(1)
	set.add(2)
	set.add(1)
	assert.Equal(t, []int{1, 2}, set.snapshot())
	set.remove(3)
	set.remove(1)
	assert.Equal(t, []int{2}, set.snapshot())
}

func TestPanningNotifications(t *testing.T) {
	s, _ := newTestSurface(t, DefaultSettings())
	rec := &recorder{}
	s.AddPanZoomListener(rec)

	s.SetScrollPosition(Point{X: 10, Y: 20})
	s.SetScrollPosition(Point{X: 10, Y: 20})
	s.ScrollBy(1, 0)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.pans, 2)
	assert.Equal(t, Point{X: 10, Y: 20}, rec.pans[0].Position)
	assert.Equal(t, Point{X: 30, Y: 20}, rec.pans[1].Position)
	assert.Equal(t, Dimension{Width: 200, Height: 200}, rec.pans[1].Extent)
}

func TestNonScrollableViewport(t *testing.T) {
	vp := NewNonScrollableViewport(Rectangle{Width: 300, Height: 100})
	fired := 0
	vp.AddChangeListener(func() { fired++ })

	vp.SetViewPosition(Point{X: 5, Y: 5})
	assert.Equal(t, Point{}, vp.ViewPosition())

	vp.Resize(Rectangle{X: 3, Width: 300, Height: 100}, Dimension{Width: 300, Height: 100})
	assert.Equal(t, 0, fired, "move without resize")
	vp.Resize(Rectangle{Width: 400, Height: 100}, Dimension{Width: 200, Height: 100})
	assert.Equal(t, 1, fired)
	assert.Equal(t, Dimension{Width: 200, Height: 100}, vp.ExtentSize())
	assert.Equal(t, Dimension{Width: 400, Height: 100}, vp.ViewSize())

	s := New(nil, vp, fixedContent{size: Dimension{Width: 400, Height: 100}}, DefaultSettings())
	defer s.Dispose()
	require.True(t, s.SetScale(0.5, -1, -1))
	assert.Equal(t, Point{}, s.ScrollPosition())
}

func TestZoomLevels(t *testing.T) {
	assert.Equal(t, 110.0, NextZoomLevel(100))
	assert.Equal(t, 110.0, NextZoomLevel(99.999))
	assert.Equal(t, 90.0, PreviousZoomLevel(100))
	assert.Equal(t, 3.0, NextZoomLevel(0))
	assert.Equal(t, 500.0, NextZoomLevel(400))
	assert.InDelta(t, 2.4, PreviousZoomLevel(3), 1e-9)
	assert.Equal(t, 150.0, ZoomLevel(0.75, 2))
	assert.InDelta(t, 0.75, ScaleForZoomLevel(150, 2), 1e-9)
	assert.Equal(t, "fit-into", ZoomFitInto.String())
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.MaxScale = -1
	require.ErrorIs(t, bad.Validate(), ErrInvalidSettings)

	bad = DefaultSettings()
	bad.ScreenScalingFactor = 0
	require.ErrorIs(t, bad.Validate(), ErrInvalidSettings)
}
