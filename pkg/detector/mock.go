package detector

import (
	"VisionAid/internal/entity"
	"context"
	"image"
	"sync"
)

// MockDetector is a Detector whose results are set by the caller. It
// ignores the confidence threshold so callers can exercise downstream
// filtering.
type MockDetector struct {
	mu            sync.Mutex
	detections    []entity.Detection
	err           error
	panicValue    any
	calls         int
	lastThreshold float64
	lastBounds    image.Rectangle
	closed        bool
}

func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

func (m *MockDetector) SetDetections(detections []entity.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = detections
}

func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetPanic makes the next Detect calls panic with v.
func (m *MockDetector) SetPanic(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicValue = v
}

func (m *MockDetector) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	m.mu.Lock()
	m.calls++
	m.lastThreshold = confThreshold
	if frame != nil {
		m.lastBounds = frame.Bounds()
	}
	detections, err, panicValue := m.detections, m.err, m.panicValue
	m.mu.Unlock()

	if panicValue != nil {
		panic(panicValue)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	out := make([]entity.Detection, len(detections))
	copy(out, detections)
	return out, nil
}

func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) LastThreshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastThreshold
}

// LastBounds is the bounds of the most recent frame passed to Detect.
func (m *MockDetector) LastBounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBounds
}

func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
