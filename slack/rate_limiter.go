package slack

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context) error
	Wait(ctx context.Context) error
}

// TokenBucketLimiter implements token bucket rate limiting on top of x/time/rate
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a token bucket limiter, or a NoOpLimiter when
// perSecond is not positive.
func NewRateLimiter(perSecond float64, burst int) RateLimiter {
	if perSecond <= 0 {
		return NoOpLimiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow checks if a request is allowed without blocking
func (l *TokenBucketLimiter) Allow(ctx context.Context) error {
	if !l.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Wait blocks until a request is allowed or ctx is done
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}

// NoOpLimiter is a rate limiter that allows all requests
type NoOpLimiter struct{}

// Allow always returns nil
func (NoOpLimiter) Allow(ctx context.Context) error { return nil }

// Wait always returns nil immediately
func (NoOpLimiter) Wait(ctx context.Context) error { return nil }
