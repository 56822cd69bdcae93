// internal/utils/metrics.go
package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter metric, updated atomically
type Counter struct {
	name  string
	value int64
}

// Gauge metric, updated atomically
type Gauge struct {
	name  string
	value int64
}

// Histogram tracks count, sum, min and max
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

func (m *MetricsCollector) counter(name string) *Counter {
	// Fast path for existing counters
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()
	if exists {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, exists = m.counters[name]; !exists {
		counter = &Counter{name: name}
		m.counters[name] = counter
	}
	return counter
}

func (m *MetricsCollector) gauge(name string) *Gauge {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()
	if exists {
		return gauge
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gauge, exists = m.gauges[name]; !exists {
		gauge = &Gauge{name: name}
		m.gauges[name] = gauge
	}
	return gauge
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(&m.counter(name).value, 1)
}

// AddCounter adds a value to a counter metric
func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(&m.counter(name).value, value)
}

// GetCounterValue gets the current value of a counter
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(&counter.value)
}

// SetGauge sets a gauge metric
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(&m.gauge(name).value, value)
}

// IncGauge increments a gauge
func (m *MetricsCollector) IncGauge(name string) {
	atomic.AddInt64(&m.gauge(name).value, 1)
}

// DecGauge decrements a gauge
func (m *MetricsCollector) DecGauge(name string) {
	atomic.AddInt64(&m.gauge(name).value, -1)
}

// GetGauge gets the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) int64 {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(&gauge.value)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		histogram, exists = m.histograms[name]
		if !exists {
			histogram = &Histogram{name: name, min: value, max: value}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	histogram.count++
	histogram.sum += value
	if value < histogram.min {
		histogram.min = value
	}
	if value > histogram.max {
		histogram.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, counter := range m.counters {
		counters[name] = atomic.LoadInt64(&counter.value)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, gauge := range m.gauges {
		gauges[name] = atomic.LoadInt64(&gauge.value)
	}

	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, histogram := range m.histograms {
		histogram.mu.Lock()
		histograms[name] = map[string]int64{
			"count": histogram.count,
			"sum":   histogram.sum,
			"min":   histogram.min,
			"max":   histogram.max,
		}
		histogram.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// SplitMetrics records scene-splitting metrics
type SplitMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewSplitMetrics creates a split metrics recorder on the given collector
func NewSplitMetrics(collector *MetricsCollector) *SplitMetrics {
	if collector == nil {
		collector = GetMetricsCollector()
	}
	return &SplitMetrics{
		metrics: collector,
		logger:  GetLogger(),
	}
}

// Collector exposes the underlying collector
func (sm *SplitMetrics) Collector() *MetricsCollector {
	return sm.metrics
}

// RecordSplit records one completed split call
func (sm *SplitMetrics) RecordSplit(strategy, method string, success bool, sceneCount int, duration time.Duration) {
	sm.metrics.IncrementCounter("split_requests_total")
	sm.metrics.IncrementCounter("split_strategy_" + strategy)
	sm.metrics.RecordHistogram("split_latency_ms", duration.Milliseconds())

	if !success {
		sm.metrics.IncrementCounter("split_failures_total")
		return
	}

	sm.metrics.IncrementCounter("split_method_" + method)
	sm.metrics.AddCounter("split_scenes_total", int64(sceneCount))
	sm.metrics.RecordHistogram("split_scene_count", int64(sceneCount))

	sm.logger.Debug("scene split recorded", map[string]interface{}{
		"strategy":    strategy,
		"method":      method,
		"scenes":      sceneCount,
		"duration_ms": duration.Milliseconds(),
	})
}

// RecordAIFallback records an AI split failure that fell back to rules
func (sm *SplitMetrics) RecordAIFallback() {
	sm.metrics.IncrementCounter("split_ai_fallbacks_total")
}

// RecordLLMRequest records metrics for an LLM request
func (sm *SplitMetrics) RecordLLMRequest(provider string, tokensUsed int, duration time.Duration) {
	sm.metrics.IncrementCounter("llm_requests_total")
	sm.metrics.IncrementCounter("llm_requests_" + provider)
	sm.metrics.AddCounter("llm_tokens_total", int64(tokensUsed))
	sm.metrics.RecordHistogram("llm_response_time_ms", duration.Milliseconds())
}

// StartMetricsReport periodically logs a metrics summary until ctx is done
func (sm *SplitMetrics) StartMetricsReport(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.logger.Info("Periodic metrics report", map[string]interface{}{
					"metrics": sm.metrics.GetMetrics(),
				})
			}
		}
	}()
}
