package visionHandler

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Throttle is the per-session frame-rate gate. It is owned by one session
// goroutine and is not safe for concurrent use.
type Throttle struct {
	clock    clock.Clock
	interval time.Duration
	last     time.Time
}

func NewThrottle(clk clock.Clock, interval time.Duration) *Throttle {
	if clk == nil {
		clk = clock.New()
	}
	return &Throttle{clock: clk, interval: interval}
}

// Allow reports whether a frame received now may be processed. The returned
// time is what Mark expects once the frame has been answered.
func (t *Throttle) Allow() (time.Time, bool) {
	now := t.clock.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return now, false
	}
	return now, true
}

func (t *Throttle) Mark(at time.Time) {
	t.last = at
}

// LastProcessed is the zero time until the first frame is marked.
func (t *Throttle) LastProcessed() time.Time {
	return t.last
}
