package visionService

import (
	"VisionAid/internal/entity"
	"math"
)

// Postprocessor transforms a detection list. Filters never reorder.
type Postprocessor func([]entity.Detection) []entity.Detection

func keep(ds []entity.Detection, pred func(entity.Detection) bool) []entity.Detection {
	out := make([]entity.Detection, 0, len(ds))
	for _, d := range ds {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// NewRescaler maps boxes from working resolution to canvas resolution.
func NewRescaler(sx, sy float64) Postprocessor {
	return func(in []entity.Detection) []entity.Detection {
		out := make([]entity.Detection, len(in))
		for i, d := range in {
			d.BBox = d.BBox.Scale(sx, sy)
			out[i] = d
		}
		return out
	}
}

// NewWidthFilter drops boxes the distance formula cannot handle.
func NewWidthFilter() Postprocessor {
	return func(in []entity.Detection) []entity.Detection {
		return keep(in, func(d entity.Detection) bool {
			return d.BBox.Width > 0 && !math.IsInf(d.BBox.Width, 0)
		})
	}
}

func NewAreaFilter(area float64) Postprocessor {
	return func(in []entity.Detection) []entity.Detection {
		return keep(in, func(d entity.Detection) bool {
			return d.BBox.Area() >= area
		})
	}
}

func NewScoreFilter(conf float64) Postprocessor {
	return func(in []entity.Detection) []entity.Detection {
		return keep(in, func(d entity.Detection) bool {
			return d.Confidence >= conf
		})
	}
}

// nearestToCenter returns the detection whose box center is closest to
// (cx, cy). The first one wins a tie.
func nearestToCenter(ds []entity.Detection, cx, cy float64) (entity.Detection, bool) {
	var (
		best     entity.Detection
		bestDist = math.Inf(1)
		found    bool
	)
	for _, d := range ds {
		x, y := d.BBox.Center()
		dist := math.Hypot(x-cx, y-cy)
		if dist < bestDist {
			best, bestDist, found = d, dist, true
		}
	}
	return best, found
}
