package hooks

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// toolMetrics is the bounded ring buffer of recent durations per tool,
// plus call/error counters. Ring-buffer bounding is mandatory: unbounded
// growth here is a defect.
type toolMetrics struct {
	mu         sync.Mutex
	durations  []time.Duration
	capacity   int
	cursor     int
	filled     bool
	callCount  int
	errorCount int
}

func newToolMetrics(capacity int) *toolMetrics {
	if capacity <= 0 {
		capacity = 1000
	}
	return &toolMetrics{
		durations: make([]time.Duration, capacity),
		capacity:  capacity,
	}
}

func (t *toolMetrics) record(d time.Duration, errored bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callCount++
	if errored {
		t.errorCount++
	}
	t.durations[t.cursor] = d
	t.cursor = (t.cursor + 1) % t.capacity
	if t.cursor == 0 {
		t.filled = true
	}
}

// Aggregate is a copy-on-snapshot view of one tool's metrics.
type Aggregate struct {
	CallCount    int
	ErrorCount   int
	MeanDuration time.Duration
	P95Duration  time.Duration
}

func (t *toolMetrics) snapshot() Aggregate {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.cursor
	if t.filled {
		n = t.capacity
	}
	if n == 0 {
		return Aggregate{CallCount: t.callCount, ErrorCount: t.errorCount}
	}

	samples := make([]time.Duration, n)
	copy(samples, t.durations[:n])

	var total time.Duration
	for _, d := range samples {
		total += d
	}
	mean := total / time.Duration(n)

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	idx := int(float64(n)*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}

	return Aggregate{
		CallCount:    t.callCount,
		ErrorCount:   t.errorCount,
		MeanDuration: mean,
		P95Duration:  samples[idx],
	}
}

// MetricsRegistry owns the per-tool ring buffers and optional Prometheus
// export of their aggregates.
type MetricsRegistry struct {
	mu            sync.Mutex
	capacity      int
	tools         map[string]*toolMetrics
	callCounter   *prometheus.CounterVec
	errorCounter  *prometheus.CounterVec
	durationHisto *prometheus.HistogramVec
}

// NewMetricsRegistry builds a registry with the given per-tool ring
// buffer capacity. Pass a non-nil registerer to also export Prometheus
// counters/histograms; pass nil to skip Prometheus entirely.
func NewMetricsRegistry(capacity int, registerer prometheus.Registerer) *MetricsRegistry {
	r := &MetricsRegistry{
		capacity: capacity,
		tools:    make(map[string]*toolMetrics),
	}
	if registerer != nil {
		r.callCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_tool_calls_total",
			Help: "Total tool dispatch calls, by tool name.",
		}, []string{"tool"})
		r.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrt_tool_errors_total",
			Help: "Total tool dispatch errors, by tool name.",
		}, []string{"tool"})
		r.durationHisto = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "agentrt_tool_duration_seconds",
			Help: "Tool dispatch duration, by tool name.",
		}, []string{"tool"})
		registerer.MustRegister(r.callCounter, r.errorCounter, r.durationHisto)
	}
	return r
}

// Record accounts one tool call's duration and outcome.
func (r *MetricsRegistry) Record(toolName string, d time.Duration, errored bool) {
	r.mu.Lock()
	tm, ok := r.tools[toolName]
	if !ok {
		tm = newToolMetrics(r.capacity)
		r.tools[toolName] = tm
	}
	r.mu.Unlock()

	tm.record(d, errored)

	if r.callCounter != nil {
		r.callCounter.WithLabelValues(toolName).Inc()
		if errored {
			r.errorCounter.WithLabelValues(toolName).Inc()
		}
		r.durationHisto.WithLabelValues(toolName).Observe(d.Seconds())
	}
}

// Snapshot returns a copy-on-snapshot aggregate for one tool.
func (r *MetricsRegistry) Snapshot(toolName string) Aggregate {
	r.mu.Lock()
	tm, ok := r.tools[toolName]
	r.mu.Unlock()
	if !ok {
		return Aggregate{}
	}
	return tm.snapshot()
}

// Reset releases all ring buffers, for use during Destroy.
func (r *MetricsRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]*toolMetrics)
}
