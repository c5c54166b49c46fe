package monitor

import (
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks signal throughput and click latency.
type SystemMetrics struct {
	PlanLatency   *LatencyWindow // one sample per completed click plan
	SignalLatency *LatencyWindow // submit to result, queue wait included

	signalsReceived uint64
	signalsExecuted uint64
	signalsNoop     uint64
	signalsFailed   uint64
	signalsRejected uint64

	mu        sync.RWMutex
	lastPlans map[string]time.Duration
	started   time.Time
}

// NewSystemMetrics keeps the last 500 samples per window.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		PlanLatency:   NewLatencyWindow(500),
		SignalLatency: NewLatencyWindow(500),
		lastPlans:     make(map[string]time.Duration),
		started:       time.Now(),
	}
}

// LatencyWindow is a fixed ring of the most recent durations.
type LatencyWindow struct {
	mu   sync.Mutex
	ring []time.Duration
	next int
	n    int
	last time.Duration
}

func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 100
	}
	return &LatencyWindow{ring: make([]time.Duration, size)}
}

// Observe stores d, overwriting the oldest sample once the ring is full.
func (w *LatencyWindow) Observe(d time.Duration) {
	w.mu.Lock()
	w.ring[w.next] = d
	w.next = (w.next + 1) % len(w.ring)
	if w.n < len(w.ring) {
		w.n++
	}
	w.last = d
	w.mu.Unlock()
}

// Since observes the time elapsed from start.
func (w *LatencyWindow) Since(start time.Time) {
	w.Observe(time.Since(start))
}

// LatencySummary is reported in milliseconds. Percentiles use nearest rank.
type LatencySummary struct {
	Count  int     `json:"count"`
	LastMs float64 `json:"last_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
}

func (w *LatencyWindow) Summary() LatencySummary {
	w.mu.Lock()
	if w.n == 0 {
		w.mu.Unlock()
		return LatencySummary{}
	}
	sorted := make([]time.Duration, w.n)
	copy(sorted, w.ring[:w.n])
	last := w.last
	w.mu.Unlock()

	slices.Sort(sorted)
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	n := len(sorted)
	return LatencySummary{
		Count:  n,
		LastMs: ms(last),
		MinMs:  ms(sorted[0]),
		MaxMs:  ms(sorted[n-1]),
		MeanMs: ms(total / time.Duration(n)),
		P50Ms:  ms(rank(sorted, 0.50)),
		P95Ms:  ms(rank(sorted, 0.95)),
	}
}

func rank(sorted []time.Duration, q float64) time.Duration {
	i := int(math.Ceil(q*float64(len(sorted)))) - 1
	if i < 0 {
		i = 0
	}
	return sorted[i]
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (m *SystemMetrics) IncrementReceived() { atomic.AddUint64(&m.signalsReceived, 1) }
func (m *SystemMetrics) IncrementExecuted() { atomic.AddUint64(&m.signalsExecuted, 1) }
func (m *SystemMetrics) IncrementNoop()     { atomic.AddUint64(&m.signalsNoop, 1) }
func (m *SystemMetrics) IncrementFailed()   { atomic.AddUint64(&m.signalsFailed, 1) }

// IncrementRejected counts signals refused before reaching the state machine
// (queue full, dispatcher closed).
func (m *SystemMetrics) IncrementRejected() { atomic.AddUint64(&m.signalsRejected, 1) }

// ObservePlan records one completed click plan. It matches order.Executor.Observe.
func (m *SystemMetrics) ObservePlan(plan string, d time.Duration) {
	m.PlanLatency.Observe(d)
	m.mu.Lock()
	m.lastPlans[plan] = d
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time view for /api/metrics.
type MetricsSnapshot struct {
	PlanLatency     LatencySummary   `json:"plan_latency"`
	SignalLatency   LatencySummary   `json:"signal_latency"`
	SignalsReceived uint64           `json:"signals_received"`
	SignalsExecuted uint64           `json:"signals_executed"`
	SignalsNoop     uint64           `json:"signals_noop"`
	SignalsFailed   uint64           `json:"signals_failed"`
	SignalsRejected uint64           `json:"signals_rejected"`
	LastPlanMs      map[string]int64 `json:"last_plan_ms"`
	GoroutineCount  int              `json:"goroutine_count"`
	HeapAlloc       uint64           `json:"heap_alloc_bytes"`
	Uptime          string           `json:"uptime"`
	Timestamp       time.Time        `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	last := make(map[string]int64, len(m.lastPlans))
	for k, v := range m.lastPlans {
		last[k] = v.Milliseconds()
	}
	m.mu.RUnlock()

	return MetricsSnapshot{
		PlanLatency:     m.PlanLatency.Summary(),
		SignalLatency:   m.SignalLatency.Summary(),
		SignalsReceived: atomic.LoadUint64(&m.signalsReceived),
		SignalsExecuted: atomic.LoadUint64(&m.signalsExecuted),
		SignalsNoop:     atomic.LoadUint64(&m.signalsNoop),
		SignalsFailed:   atomic.LoadUint64(&m.signalsFailed),
		SignalsRejected: atomic.LoadUint64(&m.signalsRejected),
		LastPlanMs:      last,
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Uptime:          time.Since(m.started).Truncate(time.Second).String(),
		Timestamp:       time.Now(),
	}
}
