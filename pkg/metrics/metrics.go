package metrics

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

const namespace = "visionaid"

var findProcess = process.NewProcessWithContext

// Collector owns a private registry so tests and multiple servers in one
// process never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	FramesReceived  prometheus.Counter
	FramesThrottled prometheus.Counter
	FramesProcessed prometheus.Counter
	DecodeFailures  prometheus.Counter
	DetectFailures  prometheus.Counter
	ActiveSessions  prometheus.Gauge
	DetectLatency   prometheus.Histogram

	memUsage prometheus.Gauge
	cpuUsage prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received over websocket sessions",
		}),
		FramesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_throttled_total",
			Help:      "Frames dropped by the per-session throttle",
		}),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames that produced a response",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Frames whose image payload could not be decoded",
		}),
		DetectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_failures_total",
			Help:      "Detector calls that failed, timed out or returned malformed output",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open websocket sessions",
		}),
		DetectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_duration_seconds",
			Help:      "Time spent inside the detector",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_megabytes",
			Help:      "Resident memory of the server process in megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percent",
			Help:      "CPU usage of the server process in percent",
		}),
	}

	c.registry.MustRegister(
		c.FramesReceived,
		c.FramesThrottled,
		c.FramesProcessed,
		c.DecodeFailures,
		c.DetectFailures,
		c.ActiveSessions,
		c.DetectLatency,
		c.memUsage,
		c.cpuUsage,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveDetect records one detector call.
func (c *Collector) ObserveDetect(elapsed time.Duration, err error) {
	c.DetectLatency.Observe(elapsed.Seconds())
	if err != nil {
		c.DetectFailures.Inc()
	}
}

// WatchProcess samples memory and CPU of the current process every interval
// until ctx is done. When the process cannot be inspected it logs a warning
// and returns nil, leaving the process gauges unset.
func (c *Collector) WatchProcess(ctx context.Context, interval time.Duration, logger *logrus.Logger) error {
	proc, err := findProcess(ctx, int32(os.Getpid()))
	if err != nil {
		if logger != nil {
			logger.Warnf("Process metrics disabled: %v", err)
		}
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.sample(ctx, proc); err != nil && logger != nil {
				logger.Debugf("process sample failed: %v", err)
			}
		}
	}
}

func (c *Collector) sample(ctx context.Context, proc *process.Process) error {
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return err
	}
	c.memUsage.Set(float64(memInfo.RSS / 1024 / 1024))

	cpuPercent, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return err
	}
	c.cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	return nil
}
