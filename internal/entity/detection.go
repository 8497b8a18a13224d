package entity

type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BBox) Area() float64 {
	return b.Width * b.Height
}

func (b BBox) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Scale returns the box with its horizontal and vertical components
// multiplied by sx and sy respectively.
func (b BBox) Scale(sx, sy float64) BBox {
	return BBox{
		X:      b.X * sx,
		Y:      b.Y * sy,
		Width:  b.Width * sx,
		Height: b.Height * sy,
	}
}

// Detection is a single object reported by a detector for one frame. The
// box is in the pixel space of the frame the detector was given.
type Detection struct {
	ClassName  string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}
