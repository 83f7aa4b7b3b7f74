package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gobeaver/slack-auth/slack"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    time.Duration          `json:"uptime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Metrics   *HealthMetrics         `json:"metrics,omitempty"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthMetrics represents health-related metrics
type HealthMetrics struct {
	ErrorRate      float64 `json:"error_rate"`
	AverageLatency int64   `json:"average_latency_ms"`
}

// HealthChecker checks the state store, the Slack API client and any
// registered checks.
type HealthChecker struct {
	service      *Service
	customChecks map[string]func(context.Context) error
	startTime    time.Time
	version      string
	mu           sync.RWMutex
}

// NewHealthChecker creates a health checker for s
func NewHealthChecker(s *Service, version string) *HealthChecker {
	return &HealthChecker{
		service:      s,
		customChecks: make(map[string]func(context.Context) error),
		startTime:    time.Now(),
		version:      version,
	}
}

// Health runs every check once
func (s *Service) Health(ctx context.Context) (*HealthCheck, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	return NewHealthChecker(s, "").Check(ctx)
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) (*HealthCheck, error) {
	if h.service == nil {
		return nil, ErrNotInitialized
	}

	health := &HealthCheck{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime),
		Checks: map[string]CheckResult{
			"state_store": h.checkStateStore(ctx),
			"slack_api":   h.checkSlackAPI(ctx),
		},
	}

	h.mu.RLock()
	customChecks := make(map[string]func(context.Context) error, len(h.customChecks))
	for name, check := range h.customChecks {
		customChecks[name] = check
	}
	h.mu.RUnlock()

	for name, check := range customChecks {
		health.Checks[name] = runCheck(ctx, check)
	}

	for _, check := range health.Checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			health.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		}
	}

	health.Metrics = healthMetrics(h.service.metrics.GetMetrics())
	return health, nil
}

// CheckComponent checks a specific component
func (h *HealthChecker) CheckComponent(ctx context.Context, component string) (*CheckResult, error) {
	var result CheckResult
	switch component {
	case "state_store":
		result = h.checkStateStore(ctx)
	case "slack_api":
		result = h.checkSlackAPI(ctx)
	default:
		h.mu.RLock()
		check, exists := h.customChecks[component]
		h.mu.RUnlock()
		if !exists {
			return nil, fmt.Errorf("unknown component: %s", component)
		}
		result = runCheck(ctx, check)
	}
	return &result, nil
}

// RegisterCheck registers a custom health check
func (h *HealthChecker) RegisterCheck(name string, check func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.customChecks[name] = check
}

func (h *HealthChecker) checkStateStore(ctx context.Context) CheckResult {
	start := time.Now()
	if err := h.service.states.Ping(ctx); err != nil {
		return CheckResult{
			Status:      HealthStatusUnhealthy,
			Error:       err.Error(),
			Duration:    time.Since(start),
			LastChecked: time.Now(),
		}
	}
	return CheckResult{
		Status:      HealthStatusHealthy,
		Message:     "State store is operational",
		Duration:    time.Since(start),
		LastChecked: time.Now(),
	}
}

func (h *HealthChecker) checkSlackAPI(_ context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{Status: HealthStatusHealthy, Message: "Slack API circuit closed"}

	switch h.service.api.CircuitState() {
	case slack.CircuitOpen:
		result = CheckResult{Status: HealthStatusUnhealthy, Message: "Slack API circuit open"}
	case slack.CircuitHalfOpen:
		result = CheckResult{Status: HealthStatusDegraded, Message: "Slack API circuit half-open"}
	}

	result.Duration = time.Since(start)
	result.LastChecked = time.Now()
	return result
}

func runCheck(ctx context.Context, check func(context.Context) error) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := check(ctx); err != nil {
		return CheckResult{
			Status:      HealthStatusUnhealthy,
			Error:       err.Error(),
			Duration:    time.Since(start),
			LastChecked: time.Now(),
		}
	}
	return CheckResult{
		Status:      HealthStatusHealthy,
		Duration:    time.Since(start),
		LastChecked: time.Now(),
	}
}

func healthMetrics(m *Metrics) *HealthMetrics {
	out := &HealthMetrics{}
	if m == nil {
		return out
	}
	total := m.TokenExchanges.Total + m.ProfileFetches.Total
	if total > 0 {
		out.ErrorRate = float64(m.TokenExchanges.Failed+m.ProfileFetches.Failed) / float64(total)
	}
	if rt, ok := m.ResponseTimes["token_exchange"]; ok {
		out.AverageLatency = rt.Average.Milliseconds()
	}
	return out
}

// HealthHandler serves the health check as JSON. Unhealthy results are
// answered with 503.
func HealthHandler(checker *HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health, err := checker.Check(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		status := http.StatusOK
		if health.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(health)
	}
}
