//go:build opencv

// Package opencv runs YOLOv8 ONNX exports through the OpenCV DNN module.
// It needs OpenCV installed and is only built with the opencv tag.
package opencv

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"VisionAid/pkg/detector/yolo"
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type Config struct {
	ModelPath    string
	Labels       []string
	InputSize    int
	IoUThreshold float64
	UseCUDA      bool
}

// Detector wraps a gocv.Net, which is not safe for concurrent use.
type Detector struct {
	net gocv.Net
	cfg Config
}

func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = yolo.DefaultInputSize
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = yolo.DefaultIoUThreshold
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = detector.COCOLabels
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", cfg.ModelPath)
	}

	if cfg.UseCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	return &Detector{net: net, cfg: cfg}, nil
}

func (d *Detector) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", detector.ErrDetectionFailed, err)
	}
	defer mat.Close()

	// YOLO expects RGB; Mats are BGR.
	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("%w: output has %d dimensions", detector.ErrMalformedOutput, len(dims))
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", detector.ErrDetectionFailed, err)
	}

	scaleX, scaleY := yolo.Scale(frame, d.cfg.InputSize, d.cfg.InputSize)
	return yolo.Decode(data, dims[2], yolo.Options{
		Labels:        d.cfg.Labels,
		ConfThreshold: confThreshold,
		IoUThreshold:  d.cfg.IoUThreshold,
		ScaleX:        scaleX,
		ScaleY:        scaleY,
	})
}

func (d *Detector) Close() error {
	return d.net.Close()
}
