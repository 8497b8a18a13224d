package detector

import (
	"VisionAid/internal/entity"
	"context"
	"image"
	"sync"
)

// Serialized lets one caller at a time into a detector that must not be
// invoked concurrently. Waiting callers give up when their context ends.
type Serialized struct {
	slot  chan struct{}
	inner Detector

	mu     sync.RWMutex
	closed bool
}

func NewSerialized(inner Detector) *Serialized {
	s := &Serialized{
		slot:  make(chan struct{}, 1),
		inner: inner,
	}
	s.slot <- struct{}{}
	return s
}

func (s *Serialized) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Serialized) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	select {
	case <-s.slot:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.slot <- struct{}{} }()

	if s.isClosed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.Detect(ctx, frame, confThreshold)
}

// Close waits for the call in flight, if any, before closing the inner
// detector.
func (s *Serialized) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	<-s.slot
	defer func() { s.slot <- struct{}{} }()
	return s.inner.Close()
}
