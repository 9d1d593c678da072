package host

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/vscripting/internal/surface"
)

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// Draw renders the surface and the status line.
func (h *Host) Draw() {
	pal := h.palette()
	w, ht := h.screen.Size()
	base := tcell.StyleDefault.Background(tcellColor(pal.Background)).Foreground(tcellColor(pal.Foreground))
	h.screen.Fill(' ', base)

	h.drawContent(base, pal)
	h.drawZoomControls(base)
	h.drawProgress(base)
	h.drawStatus(w, ht, base.Reverse(true), pal)
	h.screen.Show()
}

// contentRect is the scaled content in extent coordinates.
func (h *Host) contentRect() surface.Rectangle {
	scale := h.surface.Scale()
	size := h.surface.Content().PreferredSize()
	off := h.surface.Content().Offset()
	pos := h.viewport.ViewPosition()
	return surface.Rectangle{
		X:      off.Width - pos.X,
		Y:      off.Height - pos.Y,
		Width:  int(math.Ceil(float64(size.Width) * scale)),
		Height: int(math.Ceil(float64(size.Height) * scale)),
	}
}

func (h *Host) drawContent(base tcell.Style, pal Palette) {
	extent := h.viewport.ExtentSize()
	r := h.contentRect()
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	page := base.Background(tcellColor(pal.Background.BlendLab(pal.Foreground, 0.08)))
	for y := max(0, r.Y); y < min(extent.Height, r.Y+r.Height); y++ {
		for x := max(0, r.X); x < min(extent.Width, r.X+r.Width); x++ {
			ch := ' '
			switch {
			case (y == r.Y || y == r.Y+r.Height-1) && (x == r.X || x == r.X+r.Width-1):
				ch = '+'
			case y == r.Y || y == r.Y+r.Height-1:
				ch = '-'
			case x == r.X || x == r.X+r.Width-1:
				ch = '|'
			}
			h.screen.SetContent(x, y, ch, nil, page)
		}
	}
}

func (h *Host) drawZoomControls(base tcell.Style) {
	zc := h.surface.ZoomControls()
	if zc == nil || !zc.Visible() {
		return
	}
	extent := h.viewport.ExtentSize()
	h.text(max(0, extent.Width-12), max(0, extent.Height-1), "[-][+][1:1]", base.Bold(true))
}

func (h *Host) drawProgress(base tcell.Style) {
	extent := h.viewport.ExtentSize()
	r, ok := h.surface.Progress().Layout(extent)
	if !ok {
		return
	}
	frame := "*"
	if sp, ok := h.spinner(); ok {
		frame = sp.Frame()
	}
	h.text(r.X, r.Y, frame, base)
}

func (h *Host) drawStatus(w, ht int, style tcell.Style, pal Palette) {
	y := ht - statusLines
	if y < 0 {
		return
	}
	for x := 0; x < w; x++ {
		h.screen.SetContent(x, y, ' ', nil, style)
	}
	line := h.toolbar.State().String()
	if pal.Theme != "" {
		line += "  " + pal.Theme
	}
	h.text(0, y, line, style)
}

func (h *Host) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		h.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
