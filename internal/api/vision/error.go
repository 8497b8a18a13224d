package vision

import (
	"VisionAid/pkg/response"
	"errors"
	"fmt"
	"net/http"
)

type Stage string

const (
	StageDecode    Stage = "decode"
	StageDetect    Stage = "detect"
	StageTransport Stage = "transport"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrDecodeStage         = response.NewError(http.StatusBadRequest, "failed to decode image")
	ErrDetectStage         = response.NewError(http.StatusBadGateway, "object detection failed")
)

// StageError records which pipeline step failed. It matches ErrDecodeStage
// or ErrDetectStage under errors.Is according to its stage.
type StageError struct {
	Stage Stage
	Err   error
}

func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	switch e.Stage {
	case StageDecode:
		return target == ErrDecodeStage
	case StageDetect:
		return target == ErrDetectStage
	}
	return false
}

// StageOf reports the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
