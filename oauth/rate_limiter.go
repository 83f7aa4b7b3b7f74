package oauth

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimiterFull is returned when a new key would exceed MaxEntries.
var ErrRateLimiterFull = errors.New("rate limiter at capacity")

// RateLimiter limits requests per key, typically per client address
type RateLimiter interface {
	// Allow checks if a request should be allowed
	Allow(ctx context.Context, key string) (bool, error)
	// Reset resets the rate limit for a key
	Reset(ctx context.Context, key string) error
	// GetStatus returns the current rate limit status for a key
	GetStatus(ctx context.Context, key string) (*RateLimitStatus, error)
}

// RateLimitStatus provides information about current rate limit state
type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// RateLimiterConfig configures the rate limiter
type RateLimiterConfig struct {
	Rate            int           // Number of requests per interval
	Interval        time.Duration // Time interval for rate
	BurstSize       int           // Maximum burst size
	MaxEntries      int           // Maximum number of tracked keys
	CleanupInterval time.Duration // How often idle keys are dropped
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter keeps one token bucket per key
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	config  RateLimiterConfig
	limit   rate.Limit
	stop    chan struct{}
	once    sync.Once
}

// NewKeyedRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Close to stop it.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	if config.Rate <= 0 {
		config.Rate = 30
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = config.Rate
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	l := &KeyedRateLimiter{
		entries: make(map[string]*limiterEntry),
		config:  config,
		limit:   rate.Limit(float64(config.Rate) / config.Interval.Seconds()),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow checks if a single request should be allowed
func (l *KeyedRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	lim, err := l.get(key, true)
	if err != nil {
		return false, err
	}
	return lim.Allow(), nil
}

// Reset resets the rate limit for a key
func (l *KeyedRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
	return nil
}

// GetStatus returns the current rate limit status for a key
func (l *KeyedRateLimiter) GetStatus(_ context.Context, key string) (*RateLimitStatus, error) {
	status := &RateLimitStatus{Limit: l.config.BurstSize, Remaining: l.config.BurstSize}
	lim, err := l.get(key, false)
	if err != nil || lim == nil {
		return status, err
	}

	now := time.Now()
	tokens := lim.TokensAt(now)
	status.Remaining = int(math.Max(0, math.Floor(tokens)))
	if tokens < 1 && l.limit > 0 {
		status.RetryAfter = time.Duration((1 - tokens) / float64(l.limit) * float64(time.Second))
	}
	return status, nil
}

// Close stops the cleanup loop
func (l *KeyedRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *KeyedRateLimiter) get(key string, create bool) (*rate.Limiter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter, nil
	}
	if !create {
		return nil, nil
	}
	if len(l.entries) >= l.config.MaxEntries {
		return nil, ErrRateLimiterFull
	}
	e := &limiterEntry{
		limiter:  rate.NewLimiter(l.limit, l.config.BurstSize),
		lastSeen: time.Now(),
	}
	l.entries[key] = e
	return e.limiter, nil
}

func (l *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeIdle(time.Now().Add(-l.config.CleanupInterval))
		case <-l.stop:
			return
		}
	}
}

// removeIdle drops keys unused since cutoff
func (l *KeyedRateLimiter) removeIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}
