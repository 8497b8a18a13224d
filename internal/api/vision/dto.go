package vision

import (
	"VisionAid/internal/entity"
	"time"
)

type Prediction struct {
	Class      string           `json:"class"`
	Confidence float64          `json:"confidence"`
	Distance   float64          `json:"distance"`
	Direction  entity.Direction `json:"direction"`
	BBox       [4]int           `json:"bbox"`
}

// FrameResponse is sent once per processed frame. Predictions holds zero or
// one item and is never null on the wire.
type FrameResponse struct {
	Predictions []Prediction `json:"predictions"`
}

func EmptyResponse() *FrameResponse {
	return &FrameResponse{Predictions: []Prediction{}}
}

func NewFrameResponse(result *entity.FrameResult) *FrameResponse {
	if result == nil {
		return EmptyResponse()
	}
	return &FrameResponse{
		Predictions: []Prediction{{
			Class:      result.Class,
			Confidence: result.Confidence,
			Distance:   result.Distance,
			Direction:  result.Direction,
			BBox:       result.BBox,
		}},
	}
}

type DetectRequest struct {
	Image string `json:"image" validate:"required"`
}

type HealthResponse struct {
	Message  string `json:"message"`
	Detector string `json:"detector"`
}

// ProcessingConfig tunes the per-frame pipeline. The frame rate limit is a
// session concern and lives in SessionConfig.
type ProcessingConfig struct {
	ConfidenceThreshold float64
	MinBBoxArea         float64
	CanvasWidth         int
	CanvasHeight        int
	WorkingWidth        int
	WorkingHeight       int
	FocalLength         float64
	DetectTimeout       time.Duration
}

func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		ConfidenceThreshold: 0.7,
		MinBBoxArea:         3000,
		CanvasWidth:         640,
		CanvasHeight:        480,
		WorkingWidth:        320,
		WorkingHeight:       240,
		FocalLength:         1000,
		DetectTimeout:       5 * time.Second,
	}
}

// SessionConfig holds the transport settings of the websocket and REST
// handlers, including the per-session throttle interval.
type SessionConfig struct {
	MinProcessingInterval time.Duration
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	RequestTimeout        time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MinProcessingInterval: 200 * time.Millisecond,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          10 * time.Second,
		RequestTimeout:        10 * time.Second,
	}
}
