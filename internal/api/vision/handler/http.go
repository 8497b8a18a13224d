package visionHandler

import (
	"VisionAid/internal/api/vision"
	visionService "VisionAid/internal/api/vision/service"
	"VisionAid/internal/middleware"
	"VisionAid/pkg/metrics"
	"VisionAid/pkg/utils"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const SessionIDKey = "session_id"

type VisionHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	visionService visionService.IVisionService
	utils         utils.IUtils
	metrics       *metrics.Collector
	clock         clock.Clock
	cfg           vision.SessionConfig
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	vs visionService.IVisionService,
	utils utils.IUtils,
	collector *metrics.Collector,
	clk clock.Clock,
	cfg vision.SessionConfig,
) *VisionHandler {
	if clk == nil {
		clk = clock.New()
	}
	if collector == nil {
		collector = metrics.New()
	}

	return &VisionHandler{
		log:           log,
		validator:     validator,
		middleware:    middleware,
		visionService: vs,
		utils:         utils,
		metrics:       collector,
		clock:         clk,
		cfg:           cfg,
	}
}

// Start mounts the websocket at /ws and the REST routes under
// /api/v1/vision on srv, which is expected to be the application root.
func (h *VisionHandler) Start(srv fiber.Router) {
	srv.Use("/ws", h.middleware.NewRateLimiter, h.upgrade)
	srv.Get("/ws", websocket.New(h.handleWebSocket))

	api := srv.Group("/api/v1/vision")
	api.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
}

func (h *VisionHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID, err := h.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		sessionID = h.middleware.GetRequestID(c)
	}
	c.Locals(SessionIDKey, sessionID)

	return c.Next()
}
