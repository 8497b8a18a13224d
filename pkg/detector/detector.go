package detector

import (
	"VisionAid/internal/entity"
	"context"
	"errors"
	"image"
)

var (
	ErrDetectionFailed = errors.New("detection failed")
	ErrMalformedOutput = errors.New("malformed detector output")
	ErrClosed          = errors.New("detector is closed")
)

// Detector wraps an object detection model. Detect returns every detection
// at or above confThreshold with boxes in the pixel space of frame.
type Detector interface {
	Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error)
	Close() error
}

type Backend string

const (
	BackendONNX      Backend = "onnx"
	BackendOpenCV    Backend = "opencv"
	BackendRemote    Backend = "remote"
	BackendWebsocket Backend = "websocket"
	BackendMock      Backend = "mock"
)

// Factory builds one model instance. Pools call it once per slot.
type Factory func() (Detector, error)
