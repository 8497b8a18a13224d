package config

import (
	"VisionAid/pkg/detector"
	"VisionAid/pkg/detector/onnx"
	"VisionAid/pkg/detector/remote"
	websocketPkg "VisionAid/pkg/websocket"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var ErrOpenCVUnavailable = errors.New("opencv backend requires a build with -tags opencv")

// opencvFactory is set by backend_opencv.go when built with the opencv tag.
var opencvFactory func(env *Env, labels []string) detector.Factory

// NewDetector builds the configured detector backend. Model-backed backends
// are wrapped so that concurrent sessions never share a model handle.
func NewDetector(env *Env, logger *logrus.Logger) (detector.Detector, error) {
	switch detector.Backend(env.DetectorBackend) {
	case detector.BackendONNX:
		labels, err := detector.LoadLabels(env.ModelLabels)
		if err != nil {
			return nil, err
		}
		return pooled(env, func() (detector.Detector, error) {
			d, err := onnx.New(onnx.Config{
				ModelPath:    env.ModelPath,
				LibraryPath:  env.ORTLibraryPath,
				Labels:       labels,
				InputSize:    env.ModelInputSize,
				IoUThreshold: env.NMSIoU,
			})
			if err != nil {
				return nil, err
			}
			return d, nil
		})

	case detector.BackendOpenCV:
		if opencvFactory == nil {
			return nil, ErrOpenCVUnavailable
		}
		labels, err := detector.LoadLabels(env.ModelLabels)
		if err != nil {
			return nil, err
		}
		return pooled(env, opencvFactory(env, labels))

	case detector.BackendRemote:
		d, err := remote.New(env.RemoteDetectorURL, env.DetectTimeout)
		if err != nil {
			return nil, err
		}
		return d, nil

	case detector.BackendWebsocket:
		return websocketPkg.NewAIWebSocketClient(env.AIDetectionWSURL, logger), nil

	case detector.BackendMock:
		logger.Warn("Using mock detector, every frame will report no objects")
		return detector.NewMockDetector(), nil
	}

	return nil, fmt.Errorf("unknown detector backend %q", env.DetectorBackend)
}

func pooled(env *Env, factory detector.Factory) (detector.Detector, error) {
	if env.DetectorWorkers <= 1 {
		d, err := factory()
		if err != nil {
			return nil, err
		}
		return detector.NewSerialized(d), nil
	}
	pool, err := detector.NewPool(env.DetectorWorkers, env.DetectTimeout, factory)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
