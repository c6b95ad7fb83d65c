package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks decision, provider, and execution performance.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency histograms
	ProviderLatency  *LatencyHistogram
	DecisionLatency  *LatencyHistogram
	ExecutionLatency *LatencyHistogram

	// Counters
	decisionsCompleted uint64
	fallbacksUsed      uint64
	providerFailures   uint64
	ordersFilled       uint64
	ordersFailed       uint64
	stopsMissing       uint64
	errorsCount        uint64

	costSpent float64

	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with a sliding window and
// lazily recomputed stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		ProviderLatency:  NewLatencyHistogram(1000),
		DecisionLatency:  NewLatencyHistogram(1000),
		ExecutionLatency: NewLatencyHistogram(1000),
		lastUpdate:       time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when
// samples have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	lo, hi := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   lo,
		Max:   hi,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementDecisions increments the completed decision counter.
func (m *SystemMetrics) IncrementDecisions() {
	atomic.AddUint64(&m.decisionsCompleted, 1)
}

// IncrementFallbacks increments the technical-fallback counter.
func (m *SystemMetrics) IncrementFallbacks() {
	atomic.AddUint64(&m.fallbacksUsed, 1)
}

// IncrementProviderFailures increments the provider failure counter.
func (m *SystemMetrics) IncrementProviderFailures() {
	atomic.AddUint64(&m.providerFailures, 1)
}

// IncrementOrdersFilled increments the filled order counter.
func (m *SystemMetrics) IncrementOrdersFilled() {
	atomic.AddUint64(&m.ordersFilled, 1)
}

// IncrementOrdersFailed increments the failed order counter.
func (m *SystemMetrics) IncrementOrdersFailed() {
	atomic.AddUint64(&m.ordersFailed, 1)
}

// IncrementStopsMissing counts fills left without protective stops.
func (m *SystemMetrics) IncrementStopsMissing() {
	atomic.AddUint64(&m.stopsMissing, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// SetCostSpent records the current daily AI spend.
func (m *SystemMetrics) SetCostSpent(spent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costSpent = spent
}

// MetricsSnapshot is a point-in-time metrics view.
type MetricsSnapshot struct {
	ProviderLatency    LatencyStats `json:"provider_latency"`
	DecisionLatency    LatencyStats `json:"decision_latency"`
	ExecutionLatency   LatencyStats `json:"execution_latency"`
	DecisionsCompleted uint64       `json:"decisions_completed"`
	FallbacksUsed      uint64       `json:"fallbacks_used"`
	ProviderFailures   uint64       `json:"provider_failures"`
	OrdersFilled       uint64       `json:"orders_filled"`
	OrdersFailed       uint64       `json:"orders_failed"`
	StopsMissing       uint64       `json:"stops_missing"`
	ErrorsCount        uint64       `json:"errors_count"`
	CostSpent          float64      `json:"cost_spent"`
	GoroutineCount     int          `json:"goroutine_count"`
	HeapAlloc          uint64       `json:"heap_alloc_bytes"`
	HeapSys            uint64       `json:"heap_sys_bytes"`
	Timestamp          time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	cost := m.costSpent
	m.mu.RUnlock()

	return MetricsSnapshot{
		ProviderLatency:    m.ProviderLatency.Stats(),
		DecisionLatency:    m.DecisionLatency.Stats(),
		ExecutionLatency:   m.ExecutionLatency.Stats(),
		DecisionsCompleted: atomic.LoadUint64(&m.decisionsCompleted),
		FallbacksUsed:      atomic.LoadUint64(&m.fallbacksUsed),
		ProviderFailures:   atomic.LoadUint64(&m.providerFailures),
		OrdersFilled:       atomic.LoadUint64(&m.ordersFilled),
		OrdersFailed:       atomic.LoadUint64(&m.ordersFailed),
		StopsMissing:       atomic.LoadUint64(&m.stopsMissing),
		ErrorsCount:        atomic.LoadUint64(&m.errorsCount),
		CostSpent:          cost,
		GoroutineCount:     runtime.NumGoroutine(),
		HeapAlloc:          memStats.HeapAlloc,
		HeapSys:            memStats.HeapSys,
		Timestamp:          time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to the histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
