package slack

import (
	"errors"
	"fmt"
	"time"
)

// Standard errors for the slack package
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrRateLimited      = errors.New("slack rate limit exceeded")
	ErrRequestFailed    = errors.New("slack request failed")
	ErrResponseTooLarge = errors.New("slack response exceeds size limit")
	ErrInvalidResponse  = errors.New("invalid response from Slack")
)

// HTTPError is returned for any non-2xx response. The body is kept so callers
// can extract Slack's error envelope from it.
type HTTPError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("slack: unexpected status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrRateLimited) match a 429 response.
func (e *HTTPError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

// Temporary reports whether retrying the request later may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
