// Package onnx runs YOLOv8 ONNX exports through ONNX Runtime.
package onnx

import (
	"VisionAid/internal/entity"
	"VisionAid/pkg/detector"
	"VisionAid/pkg/detector/yolo"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputName  = "images"
	outputName = "output0"
)

var (
	envOnce  sync.Once
	envErr   error
	envReady bool
)

type Config struct {
	ModelPath    string
	LibraryPath  string
	Labels       []string
	InputSize    int
	IoUThreshold float64
	NumThreads   int
}

func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
		envReady = envErr == nil
	})
	return envErr
}

// DestroyEnvironment releases ONNX Runtime. Call once after every session
// is closed. It is a no-op when no session was ever created.
func DestroyEnvironment() error {
	if !envReady {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Detector owns one session and its tensors. It is not safe for concurrent
// use; wrap it in a detector.Pool.
type Detector struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	cfg        Config
	numAnchors int
}

// anchorCount is the number of YOLOv8 prediction cells for a square input
// across strides 8, 16 and 32.
func anchorCount(inputSize int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		n := inputSize / stride
		total += n * n
	}
	return total
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
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = runtime.NumCPU()
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", cfg.ModelPath, err)
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("error initializing onnx runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}

	numAnchors := anchorCount(cfg.InputSize)
	size := int64(cfg.InputSize)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(cfg.Labels)), int64(numAnchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &Detector{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		cfg:        cfg,
		numAnchors: numAnchors,
	}, nil
}

func (d *Detector) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := yolo.Preprocess(frame, d.cfg.InputSize, d.cfg.InputSize, d.input.GetData()); err != nil {
		return nil, fmt.Errorf("%w: prepare input: %v", detector.ErrDetectionFailed, err)
	}

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: model inference: %v", detector.ErrDetectionFailed, err)
	}

	scaleX, scaleY := yolo.Scale(frame, d.cfg.InputSize, d.cfg.InputSize)
	return yolo.Decode(d.output.GetData(), d.numAnchors, yolo.Options{
		Labels:        d.cfg.Labels,
		ConfThreshold: confThreshold,
		IoUThreshold:  d.cfg.IoUThreshold,
		ScaleX:        scaleX,
		ScaleY:        scaleY,
	})
}

func (d *Detector) Close() error {
	var errs []error
	if d.session != nil {
		errs = append(errs, d.session.Destroy())
	}
	if d.input != nil {
		errs = append(errs, d.input.Destroy())
	}
	if d.output != nil {
		errs = append(errs, d.output.Destroy())
	}
	return errors.Join(errs...)
}
