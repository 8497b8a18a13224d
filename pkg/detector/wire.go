package detector

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/imagecodec"
	"encoding/base64"
	"fmt"
	"image"
)

// WireRequest is the JSON body sent to out-of-process detection services.
// Image is base64 JPEG without a data URL header.
type WireRequest struct {
	Image      string  `json:"image"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// WireDetection carries its box as [x1, y1, x2, y2] in request pixels.
type WireDetection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"conf"`
	BBox       []float64 `json:"bbox"`
}

type WireResponse struct {
	Detections []WireDetection `json:"detections"`
	Error      string          `json:"error,omitempty"`
}

func NewWireRequest(frame image.Image, confThreshold float64) (*WireRequest, error) {
	raw, err := imagecodec.EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	return &WireRequest{
		Image:      base64.StdEncoding.EncodeToString(raw),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Confidence: confThreshold,
	}, nil
}

func (r *WireResponse) ToDetections() ([]entity.Detection, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDetectionFailed, r.Error)
	}

	detections := make([]entity.Detection, 0, len(r.Detections))
	for i, d := range r.Detections {
		if len(d.BBox) != 4 {
			return nil, fmt.Errorf("%w: detection %d has %d bbox values", ErrMalformedOutput, i, len(d.BBox))
		}
		x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
		detections = append(detections, entity.Detection{
			ClassName:  d.Class,
			Confidence: d.Confidence,
			BBox: entity.BBox{
				X:      x1,
				Y:      y1,
				Width:  x2 - x1,
				Height: y2 - y1,
			},
		})
	}

	return detections, nil
}
