package app

import "github.com/lucasb-eyer/go-colorful"

var (
	black = colorful.Color{}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// contrast returns black or white, whichever reads better on bg.
func contrast(bg colorful.Color) colorful.Color {
	l, _, _ := bg.Lab()
	if l < 0.5 {
		return white
	}
	return black
}
