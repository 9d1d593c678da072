// Package surface implements the zoomable, pannable surface a visual model
// is rendered on.
//
// A Surface owns a Viewport, the current scale and the pan/zoom listener
// set. Scale is kept in surface units, independent of the display density;
// the zoom level shown to the user is scale * screen scaling factor, in
// percent.
package surface

import "fmt"

// Point is a position in surface pixels.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Dimension is a size in surface pixels.
type Dimension struct {
	Width, Height int
}

func (d Dimension) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Rectangle is an axis-aligned area.
type Rectangle struct {
	X, Y, Width, Height int
}

// Size returns the rectangle size.
func (r Rectangle) Size() Dimension {
	return Dimension{Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies inside r.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X < r.X+r.Width && p.Y < r.Y+r.Height
}
