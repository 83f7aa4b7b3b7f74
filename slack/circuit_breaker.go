package slack

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker protects against cascading failures
type CircuitBreaker struct {
	maxFailures int
	timeout     time.Duration
	maxRequests int

	mu           sync.Mutex
	state        CircuitState
	failures     int
	halfOpenSent int
	successCount int
	lastFailTime time.Time
	onOpen       func()
}

// NewCircuitBreaker creates a new circuit breaker. A maxFailures of zero or
// less disables it.
func NewCircuitBreaker(maxFailures int, timeout time.Duration, maxRequests int) *CircuitBreaker {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		maxRequests: maxRequests,
		state:       CircuitClosed,
	}
}

// Allow checks if a request is allowed through the circuit
func (cb *CircuitBreaker) Allow() error {
	if cb.maxFailures <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.lastFailTime) <= cb.timeout {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenSent = 0
		cb.successCount = 0
		fallthrough
	case CircuitHalfOpen:
		if cb.halfOpenSent >= cb.maxRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenSent++
	}

	return nil
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.maxRequests {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	if cb.maxFailures <= 0 {
		return
	}

	cb.mu.Lock()
	cb.failures++
	cb.lastFailTime = time.Now()

	opened := false
	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			opened = true
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		opened = true
	}
	onOpen := cb.onOpen
	cb.mu.Unlock()

	if opened && onOpen != nil {
		onOpen()
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failures = 0
	cb.successCount = 0
	cb.halfOpenSent = 0
}
