package middleware

import (
	"VisionAid/pkg/log"
	"VisionAid/pkg/response"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// DefaultVisitorTTL is how long an idle client keeps its token bucket.
const DefaultVisitorTTL = 10 * time.Minute

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are swept lazily, at most once per ttl.
type rateLimiter struct {
	visitors  map[string]*visitor
	rate      rate.Limit
	burstSize int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int, ttl time.Duration) *rateLimiter {
	if ttl <= 0 {
		ttl = DefaultVisitorTTL
	}
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		rate:      reqRate,
		burstSize: burstSize,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.ttl {
		for key, v := range r.visitors {
			if now.Sub(v.lastSeen) >= r.ttl {
				delete(r.visitors, key)
			}
		}
		r.lastSweep = now
	}

	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter
}

func (r *rateLimiter) size() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.visitors)
}

// NewRateLimiter rejects requests and websocket upgrades from clients that
// exceed their bucket.
func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()

	if !m.rateLimitter.limiterFor(clientIP).Allow() {
		m.log.WithFields(log.Fields{
			"ip":   clientIP,
			"path": ctx.Path(),
		}).Warn("Too many requests")
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": ErrTooManyRequests.Error(),
		})
	}

	return ctx.Next()
}
