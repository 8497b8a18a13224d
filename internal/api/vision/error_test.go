package vision

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"errors"
	"fmt"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

func TestStageErrorMatching(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		stage    Stage
		isDecode bool
		isDetect bool
	}{
		{name: "decode", stage: StageDecode, isDecode: true},
		{name: "detect", stage: StageDetect, isDetect: true},
		{name: "transport", stage: StageTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("frame 3: %w", NewStageError(tt.stage, cause))

			assert.Equal(t, tt.isDecode, errors.Is(err, ErrDecodeStage))
			assert.Equal(t, tt.isDetect, errors.Is(err, ErrDetectStage))
			assert.ErrorIs(t, err, cause)

			stage, ok := StageOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.stage, stage)
		})
	}

	_, ok := StageOf(cause)
	assert.False(t, ok)
}

func TestDetectStageIsDistinctFromDetectorSentinel(t *testing.T) {
	raw := fmt.Errorf("%w: model inference", detector.ErrDetectionFailed)
	assert.False(t, errors.Is(raw, ErrDetectStage))

	staged := NewStageError(StageDetect, raw)
	assert.ErrorIs(t, staged, ErrDetectStage)
	assert.ErrorIs(t, staged, detector.ErrDetectionFailed)
	assert.False(t, errors.Is(staged, ErrDecodeStage))
}

func TestFrameResponseWireFormat(t *testing.T) {
	empty, err := jsoniter.Marshal(NewFrameResponse(nil))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[]}`, string(empty))

	one, err := jsoniter.Marshal(NewFrameResponse(&entity.FrameResult{
		Class:      "mobile",
		Confidence: 0.91,
		Distance:   0.7,
		Direction:  entity.DirectionLeft,
		BBox:       [4]int{10, 20, 100, 50},
	}))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[{"class":"mobile","confidence":0.91,"distance":0.7,"direction":"left","bbox":[10,20,100,50]}]}`, string(one))
}
