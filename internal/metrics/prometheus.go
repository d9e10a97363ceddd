package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exports metrics through a Prometheus registerer. Collectors
// are created on first use and registered under the configured namespace.
type PrometheusMetrics struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	gauges     map[string]prometheus.Gauge
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a PrometheusMetrics. A nil registerer means the
// default Prometheus registry.
func NewPrometheusMetrics(registerer prometheus.Registerer, namespace string) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		registerer: registerer,
		namespace:  namespace,
		gauges:     make(map[string]prometheus.Gauge),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (p *PrometheusMetrics) Initialize(ctx context.Context) error { return nil }
func (p *PrometheusMetrics) Flush(ctx context.Context) error      { return nil }
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error   { return nil }

// UpdateGauge sets the named gauge.
func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.gauges[name]
	if !ok {
		c, err := p.register(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      "AMM gauge " + name,
		}))
		if err != nil {
			return err
		}
		g = c.(prometheus.Gauge)
		p.gauges[name] = g
	}
	g.Set(value)
	return nil
}

// IncrementCounter adds value to the named counter.
func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctr, ok := p.counters[name]
	if !ok {
		c, err := p.register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name + "_total",
			Help:      "AMM counter " + name,
		}))
		if err != nil {
			return err
		}
		ctr = c.(prometheus.Counter)
		p.counters[name] = ctr
	}
	ctr.Add(float64(value))
	return nil
}

// RecordHistogram observes value on the named histogram.
func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.histograms[name]
	if !ok {
		c, err := p.register(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      "AMM histogram " + name,
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}))
		if err != nil {
			return err
		}
		h = c.(prometheus.Histogram)
		p.histograms[name] = h
	}
	h.Observe(value)
	return nil
}

func (p *PrometheusMetrics) register(c prometheus.Collector) (prometheus.Collector, error) {
	if err := p.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

var _ Metrics = (*PrometheusMetrics)(nil)
