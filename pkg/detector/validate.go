package detector

import (
	"VisionAid/internal/entity"
	"fmt"
	"math"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate reports the first detection that no model could legitimately
// produce.
func Validate(detections []entity.Detection) error {
	for i, d := range detections {
		switch {
		case d.ClassName == "":
			return fmt.Errorf("%w: detection %d has no class", ErrMalformedOutput, i)
		case !finite(d.Confidence) || d.Confidence < 0 || d.Confidence > 1:
			return fmt.Errorf("%w: detection %d confidence %v", ErrMalformedOutput, i, d.Confidence)
		case !finite(d.BBox.X) || !finite(d.BBox.Y) || !finite(d.BBox.Width) || !finite(d.BBox.Height):
			return fmt.Errorf("%w: detection %d has a non-finite box", ErrMalformedOutput, i)
		case d.BBox.Width < 0 || d.BBox.Height < 0:
			return fmt.Errorf("%w: detection %d has a negative size", ErrMalformedOutput, i)
		}
	}
	return nil
}
