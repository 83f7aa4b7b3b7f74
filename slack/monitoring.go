package slack

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks Web API calls made by a Client
type Metrics struct {
	requests      atomic.Int64
	succeeded     atomic.Int64
	failed        atomic.Int64
	rateLimitHits atomic.Int64
	circuitOpens  atomic.Int64
	totalLatency  atomic.Int64

	mu          sync.Mutex
	errorCounts map[string]int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		errorCounts: make(map[string]int64),
	}
}

// RecordRequest records a call attempt
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordSuccess records a 2xx response
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.succeeded.Add(1)
	m.totalLatency.Add(int64(latency))
}

// RecordFailure records a failed call under the given reason, typically the
// HTTP status or "transport".
func (m *Metrics) RecordFailure(reason string) {
	m.failed.Add(1)

	m.mu.Lock()
	m.errorCounts[reason]++
	m.mu.Unlock()
}

// RecordRateLimit records a local limiter rejection or a 429 response
func (m *Metrics) RecordRateLimit() {
	m.rateLimitHits.Add(1)
}

// RecordCircuitOpen records when circuit breaker opens
func (m *Metrics) RecordCircuitOpen() {
	m.circuitOpens.Add(1)
}

// GetStats returns current statistics
func (m *Metrics) GetStats() Stats {
	m.mu.Lock()
	errorCounts := make(map[string]int64, len(m.errorCounts))
	for k, v := range m.errorCounts {
		errorCounts[k] = v
	}
	m.mu.Unlock()

	var avgLatency time.Duration
	if n := m.succeeded.Load(); n > 0 {
		avgLatency = time.Duration(m.totalLatency.Load() / n)
	}

	return Stats{
		Requests:       m.requests.Load(),
		Succeeded:      m.succeeded.Load(),
		Failed:         m.failed.Load(),
		RateLimitHits:  m.rateLimitHits.Load(),
		CircuitOpens:   m.circuitOpens.Load(),
		AverageLatency: avgLatency,
		ErrorCounts:    errorCounts,
	}
}

// Stats represents client statistics
type Stats struct {
	Requests       int64
	Succeeded      int64
	Failed         int64
	RateLimitHits  int64
	CircuitOpens   int64
	AverageLatency time.Duration
	ErrorCounts    map[string]int64
}
