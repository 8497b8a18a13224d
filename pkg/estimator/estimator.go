package estimator

import (
	"VisionAid/internal/entity"
	"errors"
	"math"
)

var ErrInvalidPixelWidth = errors.New("pixel width must be positive")

// EstimateDistance applies the pinhole camera approximation. realWidth and
// focalLength must already share a unit system; the result is in the unit
// of realWidth.
func EstimateDistance(pixelWidth, realWidth, focalLength float64) (float64, error) {
	if !(pixelWidth > 0) || math.IsInf(pixelWidth, 0) {
		return 0, ErrInvalidPixelWidth
	}
	return (realWidth * focalLength) / pixelWidth, nil
}

// Classify buckets a horizontal position into thirds of the canvas. Values
// sitting exactly on a boundary are ahead.
func Classify(centerX, canvasWidth float64) entity.Direction {
	third := canvasWidth / 3
	if centerX < third {
		return entity.DirectionLeft
	}
	if centerX > 2*third {
		return entity.DirectionRight
	}
	return entity.DirectionAhead
}

// RoundDistance rounds to one decimal place, halves away from zero.
func RoundDistance(d float64) float64 {
	return math.Round(d*10) / 10
}
