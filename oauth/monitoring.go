package oauth

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gobeaver/slack-auth/slack"
)

// MetricsCollector collects and reports OAuth metrics
type MetricsCollector interface {
	// RecordAuthRequest records a completed callback
	RecordAuthRequest(success bool, duration time.Duration)
	// RecordTokenExchange records a token exchange
	RecordTokenExchange(success bool, duration time.Duration)
	// RecordTokenRefresh records a token refresh
	RecordTokenRefresh(success bool, duration time.Duration)
	// RecordProfileFetch records a profile request
	RecordProfileFetch(success bool, duration time.Duration)
	// RecordRevoke records a token revocation
	RecordRevoke(success bool, duration time.Duration)
	// RecordTokenPromotion records an exchange that used the authed_user token
	RecordTokenPromotion()
	// RecordRateLimitHit records a rejected callback
	RecordRateLimitHit(key string)
	// RecordError records an error
	RecordError(operation string, errorType string)
	// GetMetrics returns current metrics
	GetMetrics() *Metrics
	// Reset resets all metrics
	Reset()
}

// Metrics represents collected OAuth metrics
type Metrics struct {
	AuthRequests   MetricCounter `json:"auth_requests"`
	TokenExchanges MetricCounter `json:"token_exchanges"`
	TokenRefreshes MetricCounter `json:"token_refreshes"`
	ProfileFetches MetricCounter `json:"profile_fetches"`
	Revocations    MetricCounter `json:"revocations"`

	// TokenPromotions counts exchanges answered only with an authed_user token
	TokenPromotions int64 `json:"token_promotions"`

	Errors        map[string]int64 `json:"errors"`
	RateLimitHits int64            `json:"rate_limit_hits"`

	ResponseTimes map[string]ResponseTime `json:"response_times"`

	// API holds the Slack Web API client statistics
	API slack.Stats `json:"api"`

	StartTime     time.Time `json:"start_time"`
	LastResetTime time.Time `json:"last_reset_time"`
}

// MetricCounter represents a counter metric
type MetricCounter struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (m *MetricCounter) add(success bool) {
	m.Total++
	if success {
		m.Success++
	} else {
		m.Failed++
	}
}

// ResponseTime represents response time statistics
type ResponseTime struct {
	Count   int64         `json:"count"`
	Total   time.Duration `json:"total"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Average time.Duration `json:"average"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

const maxDurationSamples = 1000

// DefaultMetricsCollector implements MetricsCollector with in-memory storage
type DefaultMetricsCollector struct {
	mu        sync.Mutex
	metrics   Metrics
	durations map[string][]time.Duration
}

// NewDefaultMetricsCollector creates a new default metrics collector
func NewDefaultMetricsCollector() *DefaultMetricsCollector {
	c := &DefaultMetricsCollector{}
	c.reset(time.Now())
	c.metrics.StartTime = c.metrics.LastResetTime
	return c
}

// RecordAuthRequest records a completed callback
func (c *DefaultMetricsCollector) RecordAuthRequest(success bool, duration time.Duration) {
	c.record(&c.metrics.AuthRequests, "auth_request", success, duration)
}

// RecordTokenExchange records a token exchange
func (c *DefaultMetricsCollector) RecordTokenExchange(success bool, duration time.Duration) {
	c.record(&c.metrics.TokenExchanges, "token_exchange", success, duration)
}

// RecordTokenRefresh records a token refresh
func (c *DefaultMetricsCollector) RecordTokenRefresh(success bool, duration time.Duration) {
	c.record(&c.metrics.TokenRefreshes, "token_refresh", success, duration)
}

// RecordProfileFetch records a profile request
func (c *DefaultMetricsCollector) RecordProfileFetch(success bool, duration time.Duration) {
	c.record(&c.metrics.ProfileFetches, "profile", success, duration)
}

// RecordRevoke records a token revocation
func (c *DefaultMetricsCollector) RecordRevoke(success bool, duration time.Duration) {
	c.record(&c.metrics.Revocations, "revoke", success, duration)
}

// RecordTokenPromotion records an exchange that used the authed_user token
func (c *DefaultMetricsCollector) RecordTokenPromotion() {
	c.mu.Lock()
	c.metrics.TokenPromotions++
	c.mu.Unlock()
}

// RecordRateLimitHit records a rejected callback
func (c *DefaultMetricsCollector) RecordRateLimitHit(string) {
	c.mu.Lock()
	c.metrics.RateLimitHits++
	c.mu.Unlock()
}

// RecordError records an error
func (c *DefaultMetricsCollector) RecordError(operation string, errorType string) {
	c.mu.Lock()
	c.metrics.Errors[operation+"_"+errorType]++
	c.mu.Unlock()
}

// GetMetrics returns a snapshot of the current metrics
func (c *DefaultMetricsCollector) GetMetrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.metrics
	out.Errors = make(map[string]int64, len(c.metrics.Errors))
	for k, v := range c.metrics.Errors {
		out.Errors[k] = v
	}
	out.ResponseTimes = make(map[string]ResponseTime, len(c.durations))
	for k, d := range c.durations {
		if len(d) > 0 {
			out.ResponseTimes[k] = calculateResponseTimeStats(d)
		}
	}
	return &out
}

// Reset resets all metrics
func (c *DefaultMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(time.Now())
}

func (c *DefaultMetricsCollector) reset(now time.Time) {
	start := c.metrics.StartTime
	c.metrics = Metrics{
		Errors:        make(map[string]int64),
		ResponseTimes: make(map[string]ResponseTime),
		StartTime:     start,
		LastResetTime: now,
	}
	c.durations = make(map[string][]time.Duration)
}

func (c *DefaultMetricsCollector) record(counter *MetricCounter, key string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter.add(success)
	d := append(c.durations[key], duration)
	// Keep only the most recent samples
	if len(d) > maxDurationSamples {
		d = d[len(d)-maxDurationSamples:]
	}
	c.durations[key] = d
}

func calculateResponseTimeStats(durations []time.Duration) ResponseTime {
	if len(durations) == 0 {
		return ResponseTime{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return ResponseTime{
		Count:   int64(len(sorted)),
		Total:   total,
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Average: total / time.Duration(len(sorted)),
		P50:     sorted[len(sorted)*50/100],
		P95:     sorted[len(sorted)*95/100],
		P99:     sorted[len(sorted)*99/100],
	}
}

// errorType classifies err for the error counters.
func errorType(err error) string {
	var oerr *Error
	switch {
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrSessionNotFound):
		return "invalid_state"
	case errors.Is(err, ErrMissingAccessToken):
		return "missing_access_token"
	case errors.Is(err, ErrProfileUnavailable):
		return "profile_unavailable"
	case errors.Is(err, ErrProfileParse), errors.Is(err, ErrInvalidResponse):
		return "parse"
	case errors.Is(err, slack.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, slack.ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &oerr) && oerr.Code != "":
		return oerr.Code
	case errors.Is(err, ErrNetworkError), errors.Is(err, ErrProfileTransport):
		return "network"
	case errors.Is(err, ErrVerifyRejected):
		return "rejected"
	case errors.Is(err, ErrNoRefreshToken):
		return "no_refresh_token"
	}
	return "unknown"
}
