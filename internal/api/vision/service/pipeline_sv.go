package visionService

import (
	"VisionAid/internal/api/vision"
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"VisionAid/pkg/estimator"
	"VisionAid/pkg/imagecodec"
	"VisionAid/pkg/log"
	"context"
	"fmt"
	"image"
	"time"
)

func (s *visionService) ProcessFrame(ctx context.Context, payload string) (*vision.FrameResponse, error) {
	img, err := imagecodec.DecodeDataURL(payload)
	if err != nil {
		s.metrics.DecodeFailures.Inc()
		return nil, vision.NewStageError(vision.StageDecode, err)
	}

	return s.AnalyzeFrame(ctx, img)
}

func (s *visionService) AnalyzeFrame(ctx context.Context, img image.Image) (*vision.FrameResponse, error) {
	frame := imagecodec.Resize(img, s.cfg.WorkingWidth, s.cfg.WorkingHeight)

	detections, err := s.detect(ctx, frame)
	if err != nil {
		return nil, vision.NewStageError(vision.StageDetect, err)
	}

	candidates := detections
	for _, p := range s.postprocessors {
		candidates = p(candidates)
	}

	s.log.WithFields(log.Fields{
		"raw":       len(detections),
		"surviving": len(candidates),
	}).Debug("Filtered detections")

	best, ok := nearestToCenter(candidates, float64(s.cfg.CanvasWidth)/2, float64(s.cfg.CanvasHeight)/2)
	if !ok {
		return vision.EmptyResponse(), nil
	}

	result, err := s.describe(best)
	if err != nil {
		s.log.WithFields(log.Fields{
			"class": best.ClassName,
			"error": err.Error(),
		}).Warn("Could not describe selected detection")
		return vision.EmptyResponse(), nil
	}

	s.log.WithFields(log.Fields{
		"class":      result.Class,
		"confidence": result.Confidence,
		"distance":   result.Distance,
		"direction":  result.Direction,
	}).Debug("Selected detection")

	return vision.NewFrameResponse(result), nil
}

type detectResult struct {
	detections []entity.Detection
	err        error
}

// detect runs the detector under DetectTimeout and turns panics and
// malformed output into errors.
func (s *visionService) detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	if s.cfg.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DetectTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan detectResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- detectResult{err: fmt.Errorf("%w: detector panic: %v", detector.ErrDetectionFailed, r)}
			}
		}()
		detections, err := s.detector.Detect(ctx, frame, s.cfg.ConfidenceThreshold)
		done <- detectResult{detections: detections, err: err}
	}()

	var res detectResult
	select {
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %w", detector.ErrDetectionFailed, ctx.Err())
	case res = <-done:
		if res.err == nil {
			res.err = detector.Validate(res.detections)
		}
	}

	s.metrics.ObserveDetect(time.Since(start), res.err)
	if res.err != nil {
		return nil, res.err
	}
	return res.detections, nil
}

func (s *visionService) describe(d entity.Detection) (*entity.FrameResult, error) {
	realWidth := s.catalog.Objects.Width(d.ClassName)

	distance, err := estimator.EstimateDistance(d.BBox.Width, realWidth, s.cfg.FocalLength)
	if err != nil {
		return nil, err
	}

	centerX, _ := d.BBox.Center()

	return &entity.FrameResult{
		Class:      s.catalog.Names.Resolve(d.ClassName),
		Confidence: d.Confidence,
		Distance:   estimator.RoundDistance(distance),
		Direction:  estimator.Classify(centerX, float64(s.cfg.CanvasWidth)),
		BBox: [4]int{
			int(d.BBox.X),
			int(d.BBox.Y),
			int(d.BBox.Width),
			int(d.BBox.Height),
		},
	}, nil
}
