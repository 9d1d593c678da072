package host

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vscripting/internal/controller"
	"github.com/dshills/vscripting/internal/surface"
)

type page struct{}

func (page) PreferredSize() surface.Dimension { return surface.Dimension{Width: 160, Height: 96} }
func (page) Offset() surface.Dimension        { return surface.Dimension{} }

type fixture struct {
	screen  tcell.SimulationScreen
	surface *surface.Surface
	vp      *surface.ScrollableViewport
	host    *Host
}

func newFixture(t *testing.T, policy surface.ZoomControlsPolicy) *fixture {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 25)

	settings := surface.DefaultSettings()
	settings.FitPadding = 2
	settings.ZoomControls = policy
	hover := surface.NewHoverRegistry()
	vp := surface.NewScrollableViewport(surface.Dimension{})
	s := surface.New(nil, vp, page{}, settings, surface.WithHoverHooks(hover))
	t.Cleanup(s.Dispose)
	tb := controller.New(s)
	tb.Attach()

	h := New(screen, s, vp, tb, hover)
	require.True(t, h.HandleEvent(tcell.NewEventResize(80, 25)))
	return &fixture{screen: screen, surface: s, vp: vp, host: h}
}

func (f *fixture) key(ch rune) bool {
	return f.host.HandleEvent(tcell.NewEventKey(tcell.KeyRune, ch, tcell.ModNone))
}

func (f *fixture) row(y int) string {
	w, _ := f.screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := f.screen.GetContent(x, y) //nolint:staticcheck // GetContent is the correct API
		b.WriteRune(r)
	}
	return b.String()
}

func TestResizeSetsExtent(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)
	assert.Equal(t, surface.Dimension{Width: 80, Height: 24}, f.vp.ExtentSize())
	assert.Equal(t, surface.Dimension{Width: 160, Height: 96}, f.vp.ViewSize())

	require.True(t, f.host.HandleEvent(tcell.NewEventResize(100, 41)))
	assert.Equal(t, surface.Dimension{Width: 100, Height: 40}, f.vp.ExtentSize())
}

func TestZoomKeys(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)

	require.True(t, f.key('-'))
	assert.InDelta(t, 0.9, f.surface.Scale(), 1e-9)
	require.True(t, f.key('+'))
	assert.InDelta(t, 1.0, f.surface.Scale(), 1e-9)

	require.True(t, f.key('f'))
	// min(76/160, 20/96)
	assert.InDelta(t, 20.0/96, f.surface.Scale(), 1e-9)
	assert.Contains(t, f.row(24), "21%")

	require.True(t, f.key('0'))
	assert.InDelta(t, 1.0, f.surface.Scale(), 1e-9)
	assert.Contains(t, f.row(24), "100%")
}

func TestArrowKeysScroll(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)

	f.host.HandleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	f.host.HandleEvent(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	assert.Equal(t, surface.Point{X: 20, Y: 20}, f.surface.ScrollPosition())

	f.host.HandleEvent(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	f.host.HandleEvent(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	assert.Equal(t, surface.Point{X: 20, Y: 0}, f.surface.ScrollPosition())
}

func TestQuitKeys(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)
	assert.False(t, f.key('q'))
	assert.False(t, f.host.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
}

func TestAccessoryToggle(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)
	f.key('a')
	assert.True(t, f.surface.AccessoryPanelVisible())
	f.key('a')
	assert.False(t, f.surface.AccessoryPanelVisible())
}

func TestMouseDrivesAutoHideControls(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsAutoHide)
	zc := f.surface.ZoomControls()
	require.NotNil(t, zc)
	assert.False(t, zc.Visible())

	f.host.HandleEvent(tcell.NewEventMouse(10, 5, tcell.ButtonNone, tcell.ModNone))
	assert.True(t, zc.Visible())
	assert.Contains(t, f.row(23), "[-][+][1:1]")

	f.host.HandleEvent(tcell.NewEventMouse(10, 24, tcell.ButtonNone, tcell.ModNone))
	assert.False(t, zc.Visible())
	assert.NotContains(t, f.row(23), "[-][+][1:1]")
}

func TestProgressIsDrawn(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsHidden)
	f.surface.Progress().Show()
	f.host.Draw()
	assert.NotEqual(t, ' ', []rune(f.row(1))[78])

	f.surface.Progress().Hide()
	f.host.Draw()
	assert.Equal(t, "+", f.row(1)[79:])
}

func TestRunStopsOnQuitAndCancel(t *testing.T) {
	f := newFixture(t, surface.ZoomControlsVisible)

	errc := make(chan error, 1)
	go func() { errc <- f.host.Run(context.Background()) }()
	require.NoError(t, f.screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrQuit)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after q")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { errc <- f.host.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
