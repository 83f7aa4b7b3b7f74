package slack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gobeaver/slack-auth/config"
)

// ErrNotInitialized is returned by Health before Init has succeeded.
var ErrNotInitialized = errors.New("slack client not initialized")

// Global instance management
var (
	defaultClient *Client
	defaultOnce   sync.Once
	defaultErr    error
)

// Builder provides a way to create clients with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global client using the builder's prefix
func (b *Builder) Init(opts ...Option) error {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return err
	}
	return Init(*cfg, opts...)
}

// New creates a new client using the builder's prefix
func (b *Builder) New(opts ...Option) (*Client, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(*cfg, opts...)
}

// Init initializes the global client from cfg
func Init(cfg Config, opts ...Option) error {
	defaultOnce.Do(func() {
		defaultClient, defaultErr = New(cfg, opts...)
	})
	return defaultErr
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultClient = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Default returns the global client, initializing it from the environment
// when needed. It returns nil if that fails.
func Default() *Client {
	if defaultClient == nil {
		cfg, err := GetConfig()
		if err != nil {
			return nil
		}
		_ = Init(*cfg)
	}
	return defaultClient
}

// Health reports whether the global client can currently reach Slack.
func Health(ctx context.Context) error {
	if defaultClient == nil {
		return ErrNotInitialized
	}
	return defaultClient.Ping(ctx)
}

// Ping fails while the circuit breaker is open. It sends no request.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state := c.CircuitState(); state == CircuitOpen {
		return fmt.Errorf("%w: state %s", ErrCircuitOpen, state)
	}
	return nil
}
