package visionService

import (
	"VisionAid/internal/api/vision"
	"VisionAid/internal/catalog"
	"VisionAid/pkg/detector"
	"VisionAid/pkg/metrics"
	"context"
	"image"

	"github.com/sirupsen/logrus"
)

type IVisionService interface {
	// ProcessFrame decodes a data URL payload and runs it through the
	// pipeline. Failures are returned as *vision.StageError.
	ProcessFrame(ctx context.Context, payload string) (*vision.FrameResponse, error)
	AnalyzeFrame(ctx context.Context, img image.Image) (*vision.FrameResponse, error)
}

type visionService struct {
	log            *logrus.Logger
	detector       detector.Detector
	catalog        *catalog.Catalog
	cfg            vision.ProcessingConfig
	metrics        *metrics.Collector
	postprocessors []Postprocessor
}

func NewVisionService(
	log *logrus.Logger,
	det detector.Detector,
	cat *catalog.Catalog,
	cfg vision.ProcessingConfig,
	collector *metrics.Collector,
) IVisionService {
	if collector == nil {
		collector = metrics.New()
	}

	sx := float64(cfg.CanvasWidth) / float64(cfg.WorkingWidth)
	sy := float64(cfg.CanvasHeight) / float64(cfg.WorkingHeight)

	return &visionService{
		log:      log,
		detector: det,
		catalog:  cat,
		cfg:      cfg,
		metrics:  collector,
		postprocessors: []Postprocessor{
			NewRescaler(sx, sy),
			NewWidthFilter(),
			NewAreaFilter(cfg.MinBBoxArea),
			NewScoreFilter(cfg.ConfidenceThreshold),
		},
	}
}
