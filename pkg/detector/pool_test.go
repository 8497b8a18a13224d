package detector

import (
	"VisionAid/internal/entity"
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingDetector records how many callers are inside Detect at once.
type blockingDetector struct {
	active  *int32
	maxSeen *int32
	release chan struct{}
	closed  atomic.Bool
}

func (b *blockingDetector) Detect(ctx context.Context, frame image.Image, confThreshold float64) ([]entity.Detection, error) {
	n := atomic.AddInt32(b.active, 1)
	defer atomic.AddInt32(b.active, -1)
	for {
		seen := atomic.LoadInt32(b.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(b.maxSeen, seen, n) {
			break
		}
	}
	<-b.release
	return nil, nil
}

func (b *blockingDetector) Close() error {
	b.closed.Store(true)
	return nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var active, maxSeen int32
	release := make(chan struct{})
	var built []*blockingDetector

	pool, err := NewPool(2, time.Second, func() (Detector, error) {
		d := &blockingDetector{active: &active, maxSeen: &maxSeen, release: release}
		built = append(built, d)
		return d, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Size())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Detect(context.Background(), nil, 0.5)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&active) == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&maxSeen))
	stats := pool.Stats()
	assert.Equal(t, int64(6), stats.TotalAcquired)
	assert.Equal(t, int64(6), stats.TotalReleased)
	assert.Equal(t, 0, stats.InUse)

	require.NoError(t, pool.Close())
	for _, d := range built {
		assert.True(t, d.closed.Load())
	}

	_, err = pool.Detect(context.Background(), nil, 0.5)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolAcquireTimeout(t *testing.T) {
	var active, maxSeen int32
	release := make(chan struct{})
	defer close(release)

	pool, err := NewPool(1, 50*time.Millisecond, func() (Detector, error) {
		return &blockingDetector{active: &active, maxSeen: &maxSeen, release: release}, nil
	})
	require.NoError(t, err)

	go func() { _, _ = pool.Detect(context.Background(), nil, 0.5) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&active) == 1 }, time.Second, 5*time.Millisecond)

	_, err = pool.Detect(context.Background(), nil, 0.5)
	assert.ErrorIs(t, err, ErrDetectionFailed)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Equal(t, int64(1), pool.Stats().AcquireFailures)
}

func TestPoolFactoryError(t *testing.T) {
	calls := 0
	first := NewMockDetector()
	_, err := NewPool(3, time.Second, func() (Detector, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("no model")
		}
		return first, nil
	})
	require.Error(t, err)
	assert.True(t, first.Closed(), "instances built before the failure are closed")
}

func TestSerializedWaitHonorsContext(t *testing.T) {
	var active, maxSeen int32
	b := &blockingDetector{active: &active, maxSeen: &maxSeen, release: make(chan struct{})}
	s := NewSerialized(b)

	go func() { _, _ = s.Detect(context.Background(), nil, 0.5) }()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&active) == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Detect(ctx, nil, 0.5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	close(b.release)
	require.NoError(t, s.Close())
	assert.True(t, b.closed.Load())
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxSeen))
}
