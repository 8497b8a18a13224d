package config

import (
	"VisionAid/internal/api/vision"
	visionHandler "VisionAid/internal/api/vision/handler"
	visionService "VisionAid/internal/api/vision/service"
	"VisionAid/internal/catalog"
	"VisionAid/internal/middleware"
	"VisionAid/pkg/detector"
	"VisionAid/pkg/metrics"
	"VisionAid/pkg/utils"
	"VisionAid/web"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	detector   detector.Detector
	catalog    *catalog.Catalog
	metrics    *metrics.Collector
	clock      clock.Clock
	env        *Env
	processing vision.ProcessingConfig
	session    vision.SessionConfig
	handlers   []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		processing: vision.DefaultProcessingConfig(),
		session:    vision.DefaultSessionConfig(),
		clock:      clock.New(),
		utils:      utils.New(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.metrics == nil {
		server.metrics = metrics.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, 0, 0)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithEnv applies the environment. Options listed after it override the
// values it sets.
func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		if env == nil {
			return fmt.Errorf("env is nil")
		}
		s.env = env
		s.processing = env.ProcessingConfig()
		s.session = env.SessionConfig()
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		var (
			rps   float64
			burst int
		)
		if s.env != nil {
			rps, burst = s.env.RateLimitRPS, s.env.RateLimitBurst
		}
		s.middleware = middleware.New(s.log, rps, burst)
		return nil
	}
}

func WithDetector(d detector.Detector) ServerOption {
	return func(s *Server) error {
		if d == nil {
			return fmt.Errorf("detector is nil")
		}
		s.detector = d
		return nil
	}
}

func WithCatalog(c *catalog.Catalog) ServerOption {
	return func(s *Server) error {
		if c == nil {
			return fmt.Errorf("catalog is nil")
		}
		s.catalog = c
		return nil
	}
}

func WithMetrics(collector *metrics.Collector) ServerOption {
	return func(s *Server) error {
		s.metrics = collector
		return nil
	}
}

func WithProcessingConfig(cfg vision.ProcessingConfig) ServerOption {
	return func(s *Server) error {
		s.processing = cfg
		return nil
	}
}

func WithSessionConfig(cfg vision.SessionConfig) ServerOption {
	return func(s *Server) error {
		s.session = cfg
		return nil
	}
}

func WithClock(clk clock.Clock) ServerOption {
	return func(s *Server) error {
		s.clock = clk
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	// Vision
	visionServices := visionService.NewVisionService(s.log, s.detector, s.catalog, s.processing, s.metrics)
	visionHandlers := visionHandler.New(s.log, s.validator, s.middleware, visionServices, s.utils, s.metrics, s.clock, s.session)

	s.setupHealthCheck()
	s.setupMetrics()
	s.setupIndex()
	s.handlers = append(s.handlers, visionHandlers)

	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) port() string {
	if s.env != nil && s.env.AppPort != "" {
		return s.env.AppPort
	}
	return "3000"
}

func (s *Server) Run() error {
	return s.engine.Listen(fmt.Sprintf(":%s", s.port()))
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.engine.Listener(ln)
}

// Shutdown stops accepting connections, waits up to timeout for open
// requests and then closes the detector.
func (s *Server) Shutdown(timeout time.Duration) error {
	shutdownErr := s.engine.ShutdownWithTimeout(timeout)
	if err := s.detector.Close(); err != nil {
		s.log.Errorf("Error closing detector: %v", err)
	}
	return shutdownErr
}

// WatchProcess samples process stats into the metrics registry until ctx
// is done.
func (s *Server) WatchProcess(ctx context.Context) error {
	interval := 5 * time.Second
	if s.env != nil {
		interval = s.env.MetricsSampleInterval
	}
	return s.metrics.WatchProcess(ctx, interval, s.log)
}

func (s *Server) backend() string {
	if s.env != nil {
		return s.env.DetectorBackend
	}
	return "custom"
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/api/v1/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(vision.HealthResponse{
			Message:  "Server is Healthy!",
			Detector: s.backend(),
		})
	})
}

func (s *Server) setupMetrics() {
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}

func (s *Server) setupIndex() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		if s.env != nil && s.env.StaticIndexPath != "" {
			return ctx.SendFile(s.env.StaticIndexPath)
		}
		ctx.Type("html", "utf-8")
		return ctx.Send(web.Index)
	})
}
