package theme

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// darkLuminance is the CIE L* value below which a background counts as dark.
const darkLuminance = 0.5

// Style is a resolved theme.
type Style struct {
	Name       string
	Framework  bool
	Background colorful.Color
	Foreground colorful.Color
}

// Dark reports whether the style has a dark background.
func (s *Style) Dark() bool {
	l, _, _ := s.Background.Lab()
	return l < darkLuminance
}

// styleFromChroma converts a chroma style.
func styleFromChroma(cs *chroma.Style, framework bool) *Style {
	bg := cs.Get(chroma.Background)
	st := &Style{
		Name:       cs.Name,
		Framework:  framework,
		Background: colorful.Color{R: 1, G: 1, B: 1},
		Foreground: colorful.Color{},
	}
	if bg.Background.IsSet() {
		st.Background = colourOf(bg.Background)
	}
	if bg.Colour.IsSet() {
		st.Foreground = colourOf(bg.Colour)
	}
	return st
}

func colourOf(c chroma.Colour) colorful.Color {
	return colorful.Color{
		R: float64(c.Red()) / 255,
		G: float64(c.Green()) / 255,
		B: float64(c.Blue()) / 255,
	}
}
