package surface

import (
	"fmt"
	"math"
)

// ZoomType is a zoom action.
type ZoomType int

const (
	// ZoomIn steps up to the next zoom level.
	ZoomIn ZoomType = iota
	// ZoomOut steps down to the previous zoom level.
	ZoomOut
	// ZoomActual shows the content at 100%.
	ZoomActual
	// ZoomFit scales the content to fill the viewport.
	ZoomFit
	// ZoomFitInto scales the content to fit the viewport without going
	// past 100%.
	ZoomFitInto
)

// String returns the zoom type name.
func (z ZoomType) String() string {
	switch z {
	case ZoomIn:
		return "in"
	case ZoomOut:
		return "out"
	case ZoomActual:
		return "actual"
	case ZoomFit:
		return "fit"
	case ZoomFitInto:
		return "fit-into"
	default:
		return fmt.Sprintf("ZoomType(%d)", int(z))
	}
}

// zoomLevels are the canonical zoom percentages the in/out actions step
// through.
var zoomLevels = []int{3, 5, 10, 25, 33, 50, 67, 75, 90, 100, 110, 125, 150, 175, 200, 300, 400}

// zoomStep is the factor used beyond either end of the table.
const zoomStep = 1.25

// levelEpsilon treats percentages this close to a table level as equal to
// it, so 99.999% zooms in to 110%, not 100%.
const levelEpsilon = 0.01

// NextZoomLevel returns the first canonical level strictly above percent.
func NextZoomLevel(percent float64) float64 {
	for _, l := range zoomLevels {
		if float64(l) > percent+levelEpsilon {
			return float64(l)
		}
	}
	return math.Round(percent * zoomStep)
}

// PreviousZoomLevel returns the last canonical level strictly below percent.
func PreviousZoomLevel(percent float64) float64 {
	for i := len(zoomLevels) - 1; i >= 0; i-- {
		if float64(zoomLevels[i]) < percent-levelEpsilon {
			return float64(zoomLevels[i])
		}
	}
	return percent / zoomStep
}

// ZoomLevel converts a surface scale to the percentage shown to the user.
func ZoomLevel(scale, screenScalingFactor float64) float64 {
	return scale * screenScalingFactor * 100
}

// ScaleForZoomLevel converts a percentage back to a surface scale.
func ScaleForZoomLevel(percent, screenScalingFactor float64) float64 {
	return percent / 100 / screenScalingFactor
}
