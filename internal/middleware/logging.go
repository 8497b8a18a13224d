package middleware

import (
	"VisionAid/pkg/log"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// LoggerConfig logs one line per HTTP request. Websocket sessions log on
// their own, so upgraded requests are only logged once at handshake.
func LoggerConfig(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		logFields := log.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 && c.Is("json") {
			logFields["request_body"] = sanitizeRequestBody(body)
		}

		entry := logger.WithFields(logFields)
		switch {
		case err != nil || status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}

		return err
	}
}

var redactedFields = []string{"image", "image_base64", "frame", "data"}

// sanitizeRequestBody replaces encoded images with their length so frames
// never end up in the log files.
func sanitizeRequestBody(body []byte) string {
	var jsonBody map[string]interface{}
	if err := jsoniter.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for _, field := range redactedFields {
		if v, exists := jsonBody[field]; exists {
			if s, ok := v.(string); ok {
				jsonBody[field] = fmt.Sprintf("[%d bytes]", len(s))
			} else {
				jsonBody[field] = "[REDACTED]"
			}
		}
	}

	sanitized, err := jsoniter.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}

type loggingMiddleware struct {
	handler fiber.Handler
}

func newLoggingMiddleware(logger *logrus.Logger) *loggingMiddleware {
	return &loggingMiddleware{
		handler: LoggerConfig(logger),
	}
}

func (m *middleware) NewLoggingMiddleware(ctx *fiber.Ctx) error {
	return m.loggingMiddleware.handler(ctx)
}
