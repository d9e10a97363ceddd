// Package metrics collects engine operation metrics.
//
// The engine reports <op>_succeeded and <op>_rejected counters,
// <op>_latency_seconds histograms and pool reserve gauges through a
// Collection, which fans each call out to every registered backend.
package metrics

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Metrics is a metrics backend.
type Metrics interface {
	Initialize(ctx context.Context) error
	// Flush reports anything the backend buffers.
	Flush(ctx context.Context) error
	Shutdown(ctx context.Context) error

	UpdateGauge(ctx context.Context, name string, value float64) error
	IncrementCounter(ctx context.Context, name string, value uint64) error
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Collection is a Metrics that forwards to several backends. A failing
// backend does not stop the others; their errors are joined.
type Collection struct {
	mu       sync.RWMutex
	backends []Metrics
}

func NewCollection(backends ...Metrics) *Collection {
	return &Collection{backends: backends}
}

func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends = append(c.backends, m)
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.backends)
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, m := range c.backends {
		if err := fn(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collection) Initialize(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Initialize(ctx) })
}

func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

func (c *Collection) Shutdown(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Shutdown(ctx) })
}

func (c *Collection) UpdateGauge(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.UpdateGauge(ctx, name, value) })
}

func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) Initialize(ctx context.Context) error                              { return nil }
func (n *NoopMetrics) Flush(ctx context.Context) error                                   { return nil }
func (n *NoopMetrics) Shutdown(ctx context.Context) error                                { return nil }
func (n *NoopMetrics) UpdateGauge(ctx context.Context, name string, value float64) error { return nil }
func (n *NoopMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return nil
}
func (n *NoopMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	return nil
}

// LogMetrics logs every update at debug level and keeps the latest counter
// and gauge values, which Flush logs at info level.
type LogMetrics struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	gauges   map[string]float64
	counters map[string]uint64
}

// NewLogMetrics creates a LogMetrics. A nil logger discards output.
func NewLogMetrics(logger *zap.Logger) *LogMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMetrics{
		logger:   logger,
		gauges:   make(map[string]float64),
		counters: make(map[string]uint64),
	}
}

func (l *LogMetrics) Initialize(ctx context.Context) error {
	l.logger.Debug("metrics initialized")
	return nil
}

func (l *LogMetrics) Flush(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	l.logger.Info("engine metrics",
		zap.Any("gauges", l.gauges),
		zap.Any("counters", l.counters),
	)
	return nil
}

func (l *LogMetrics) Shutdown(ctx context.Context) error {
	l.logger.Debug("metrics shutdown")
	return nil
}

func (l *LogMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gauges[name] = value
	l.logger.Debug("gauge updated", zap.String("name", name), zap.Float64("value", value))
	return nil
}

func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[name] += value
	l.logger.Debug("counter incremented",
		zap.String("name", name),
		zap.Uint64("value", value),
		zap.Uint64("total", l.counters[name]),
	)
	return nil
}

func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.logger.Debug("histogram recorded", zap.String("name", name), zap.Float64("value", value))
	return nil
}

// Counter returns the accumulated value of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Gauge returns the last value set on a gauge.
func (l *LogMetrics) Gauge(name string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gauges[name]
}

// Metric names used by the engine. Operation outcomes are reported as
// <op>_succeeded and <op>_rejected, latencies as <op>_latency_seconds.
const (
	MetricPoolReserveX  = "pool_reserve_x"
	MetricPoolReserveY  = "pool_reserve_y"
	MetricPoolLPSupply  = "pool_lp_supply"
	SuffixSucceeded     = "_succeeded"
	SuffixRejected      = "_rejected"
	SuffixLatency       = "_latency_seconds"
	MetricSwapVolumeIn  = "swap_volume_in"
	MetricSwapVolumeOut = "swap_volume_out"
)
