package detector

import (
	"VisionAid/internal/entity"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

const (
	DefaultPoolSize       = 2
	DefaultAcquireTimeout = 5 * time.Second
)

var ErrAcquireTimeout = errors.New("timeout waiting for available detector")

// Pool hands out a fixed set of detector instances, one caller at a time
// per instance. It is used for model handles that are not safe for
// concurrent use.
type Pool struct {
	instances      chan Detector
	size           int
	acquireTimeout time.Duration

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	stats   PoolStats
}

type PoolStats struct {
	InUse           int
	TotalAcquired   int64
	TotalReleased   int64
	AcquireFailures int64
	WaitTime        time.Duration
}

func NewPool(size int, acquireTimeout time.Duration, factory Factory) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	pool := &Pool{
		instances:      make(chan Detector, size),
		size:           size,
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		d, err := factory()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to initialize detector %d: %w", i, err)
		}
		pool.instances <- d
	}

	return pool, nil
}

func (p *Pool) acquire(ctx context.Context) (Detector, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	start := time.Now()
	defer func() {
		p.statsMu.Lock()
		p.stats.WaitTime += time.Since(start)
		p.statsMu.Unlock()
	}()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case d := <-p.instances:
		p.statsMu.Lock()
		p.stats.InUse++
		p.stats.TotalAcquired++
		p.statsMu.Unlock()
		return d, nil
	case <-timer.C:
		p.statsMu.Lock()
		p.stats.AcquireFailures++
		p.statsMu.Unlock()
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(d Detector) {
	p.statsMu.Lock()
	p.stats.InUse--
	p.stats.TotalReleased++
	p.statsMu.Unlock()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		d.Close()
		return
	}
	p.instances <- d
}

func (p *Pool) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	d, err := p.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}
	defer p.release(d)

	return d.Detect(ctx, frame, confThreshold)
}

// Close closes idle instances now and busy ones as they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for {
		select {
		case d := <-p.instances:
			if err := d.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Stats() PoolStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}
