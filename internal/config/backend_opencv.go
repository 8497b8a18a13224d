//go:build opencv

package config

import (
	"VisionAid/pkg/detector"
	"VisionAid/pkg/detector/opencv"
)

func init() {
	opencvFactory = func(env *Env, labels []string) detector.Factory {
		return func() (detector.Detector, error) {
			d, err := opencv.New(opencv.Config{
				ModelPath:    env.ModelPath,
				Labels:       labels,
				InputSize:    env.ModelInputSize,
				IoUThreshold: env.NMSIoU,
			})
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	}
}
