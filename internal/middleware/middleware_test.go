package middleware

import (
	contextPkg "VisionAid/pkg/context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRateLimiter(t *testing.T) {
	m := New(testLogger(), 1, 1)
	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := newRateLimiter(1, 1, time.Minute)
	r.now = func() time.Time { return now }

	first := r.limiterFor("10.0.0.1")
	assert.Same(t, first, r.limiterFor("10.0.0.1"))
	r.limiterFor("10.0.0.2")
	assert.Equal(t, 2, r.size())

	now = now.Add(30 * time.Second)
	r.limiterFor("10.0.0.2")

	now = now.Add(45 * time.Second)
	r.limiterFor("10.0.0.3")
	assert.Equal(t, 2, r.size())
	assert.NotSame(t, first, r.limiterFor("10.0.0.1"))
}

func TestRequestIDMiddleware(t *testing.T) {
	m := New(testLogger(), 0, 0)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Len(t, string(body), 26)
		assert.Equal(t, string(body), resp.Header.Get(RequestIDKey))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDKey, "client-id")

		resp, err := app.Test(req)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "client-id", string(body))
	})
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody([]byte(`{"image":"data:image/jpeg;base64,AAAA","note":"hi"}`))

	assert.True(t, strings.Contains(got, `"image":"[27 bytes]"`))
	assert.True(t, strings.Contains(got, `"note":"hi"`))
	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody([]byte("not json")))
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	m := New(testLogger(), 0, 0)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware(), m.NewLoggingMiddleware)
	app.Post("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTeapot).SendString("short and stout")
	})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"image":"xyz"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestRequestIDReachesUserContext(t *testing.T) {
	m := New(testLogger(), 0, 0)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(contextPkg.GetRequestID(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "from-header")

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "from-header", string(body))
}
