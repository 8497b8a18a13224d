package config

import (
	"VisionAid/internal/api/vision"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Env is the process configuration read from environment variables.
type Env struct {
	AppPort  string `validate:"required,numeric"`
	AppEnv   string `validate:"required"`
	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogDir   string

	FocalLength           float64       `validate:"gt=0"`
	ConfidenceThreshold   float64       `validate:"gte=0,lte=1"`
	CanvasWidth           int           `validate:"gt=0"`
	CanvasHeight          int           `validate:"gt=0"`
	WorkingWidth          int           `validate:"gt=0"`
	WorkingHeight         int           `validate:"gt=0"`
	MinProcessingInterval time.Duration `validate:"gte=0"`
	MinBBoxArea           float64       `validate:"gte=0"`
	DetectTimeout         time.Duration `validate:"gt=0"`
	WSReadTimeout         time.Duration `validate:"gt=0"`
	WSWriteTimeout        time.Duration `validate:"gt=0"`

	DetectorBackend   string  `validate:"oneof=onnx opencv remote websocket mock"`
	ModelPath         string  `validate:"required_if=DetectorBackend onnx,required_if=DetectorBackend opencv"`
	ModelInputSize    int     `validate:"gt=0"`
	NMSIoU            float64 `validate:"gt=0,lte=1"`
	DetectorWorkers   int     `validate:"gte=1"`
	RemoteDetectorURL string  `validate:"required_if=DetectorBackend remote,omitempty,url"`
	AIDetectionWSURL  string  `validate:"required_if=DetectorBackend websocket,omitempty,url"`
	ModelLabels       string
	ORTLibraryPath    string

	CatalogPath     string
	StaticIndexPath string

	RateLimitRPS          float64       `validate:"gt=0"`
	RateLimitBurst        int           `validate:"gt=0"`
	MetricsSampleInterval time.Duration `validate:"gt=0"`
}

type envReader struct {
	errs []error
}

func (r *envReader) string(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.string(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// LoadEnv reads and validates the environment. Unset variables take their
// defaults; malformed ones are reported together.
func LoadEnv(validate *validator.Validate) (*Env, error) {
	r := &envReader{}
	proc := vision.DefaultProcessingConfig()
	sess := vision.DefaultSessionConfig()

	env := &Env{
		AppPort:  r.string("APP_PORT", "3000"),
		AppEnv:   r.string("APP_ENV", "development"),
		LogLevel: r.string("LOG_LEVEL", "debug"),
		LogDir:   r.string("LOG_DIR", "./storage/logs"),

		FocalLength:           r.float("FOCAL_LENGTH", proc.FocalLength),
		ConfidenceThreshold:   r.float("CONFIDENCE_THRESHOLD", proc.ConfidenceThreshold),
		CanvasWidth:           r.int("CANVAS_WIDTH", proc.CanvasWidth),
		CanvasHeight:          r.int("CANVAS_HEIGHT", proc.CanvasHeight),
		WorkingWidth:          r.int("WORKING_WIDTH", proc.WorkingWidth),
		WorkingHeight:         r.int("WORKING_HEIGHT", proc.WorkingHeight),
		MinProcessingInterval: r.duration("MIN_PROCESSING_INTERVAL", sess.MinProcessingInterval),
		MinBBoxArea:           r.float("MIN_BBOX_AREA", proc.MinBBoxArea),
		DetectTimeout:         r.duration("DETECT_TIMEOUT", proc.DetectTimeout),
		WSReadTimeout:         r.duration("WS_READ_TIMEOUT", sess.ReadTimeout),
		WSWriteTimeout:        r.duration("WS_WRITE_TIMEOUT", sess.WriteTimeout),

		DetectorBackend:   r.string("DETECTOR_BACKEND", "onnx"),
		ModelPath:         r.string("MODEL_PATH", "./models/yolov8m.onnx"),
		ModelInputSize:    r.int("MODEL_INPUT_SIZE", 640),
		ModelLabels:       r.string("MODEL_LABELS", ""),
		NMSIoU:            r.float("NMS_IOU", 0.7),
		DetectorWorkers:   r.int("DETECTOR_WORKERS", 2),
		ORTLibraryPath:    r.string("ORT_LIBRARY_PATH", ""),
		RemoteDetectorURL: r.string("REMOTE_DETECTOR_URL", ""),
		AIDetectionWSURL:  r.string("AI_DETECTION_WS_URL", "ws://localhost:8000/api/v1/detect/ws"),

		CatalogPath:     r.string("CATALOG_PATH", ""),
		StaticIndexPath: r.string("STATIC_INDEX_PATH", ""),

		RateLimitRPS:          r.float("RATE_LIMIT_RPS", 50),
		RateLimitBurst:        r.int("RATE_LIMIT_BURST", 100),
		MetricsSampleInterval: r.duration("METRICS_SAMPLE_INTERVAL", 5*time.Second),
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %w", errors.Join(r.errs...))
	}

	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return env, nil
}

func (e *Env) ProcessingConfig() vision.ProcessingConfig {
	return vision.ProcessingConfig{
		ConfidenceThreshold: e.ConfidenceThreshold,
		MinBBoxArea:         e.MinBBoxArea,
		CanvasWidth:         e.CanvasWidth,
		CanvasHeight:        e.CanvasHeight,
		WorkingWidth:        e.WorkingWidth,
		WorkingHeight:       e.WorkingHeight,
		FocalLength:         e.FocalLength,
		DetectTimeout:       e.DetectTimeout,
	}
}

func (e *Env) SessionConfig() vision.SessionConfig {
	return vision.SessionConfig{
		MinProcessingInterval: e.MinProcessingInterval,
		ReadTimeout:           e.WSReadTimeout,
		WriteTimeout:          e.WSWriteTimeout,
		RequestTimeout:        e.DetectTimeout + 5*time.Second,
	}
}
