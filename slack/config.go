package slack

import (
	"time"

	"github.com/gobeaver/slack-auth/config"
)

// DefaultPrefix is the environment prefix for the API client settings.
const DefaultPrefix = "BEAVER_SLACK_"

// Config defines the Slack Web API client configuration
type Config struct {
	// BaseURL resolves relative method names such as "auth.revoke".
	BaseURL   string        `env:"API_BASE_URL,default:https://slack.com/api/"`
	Timeout   time.Duration `env:"TIMEOUT,default:10s"`
	UserAgent string        `env:"USER_AGENT,default:beaver-slack-auth"`

	// Rate limiting
	RateLimit float64 `env:"RATE_LIMIT,default:20"` // requests per second, 0 disables
	RateBurst int     `env:"RATE_BURST,default:20"` // burst size

	// Circuit breaker
	CircuitThreshold   int           `env:"CIRCUIT_THRESHOLD,default:5"`    // failures before opening
	CircuitTimeout     time.Duration `env:"CIRCUIT_TIMEOUT,default:60s"`    // time before half-open
	CircuitMaxRequests int           `env:"CIRCUIT_MAX_REQUESTS,default:1"` // requests in half-open state

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize int64 `env:"MAX_RESPONSE_SIZE,default:1048576"`

	// Monitoring
	EnableMetrics bool `env:"ENABLE_METRICS,default:true"`
}

// DefaultConfig returns a Config with all default values applied.
// Use this when creating configs programmatically instead of from environment variables.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "https://slack.com/api/",
		Timeout:            10 * time.Second,
		UserAgent:          "beaver-slack-auth",
		RateLimit:          20,
		RateBurst:          20,
		CircuitThreshold:   5,
		CircuitTimeout:     60 * time.Second,
		CircuitMaxRequests: 1,
		MaxResponseSize:    1 << 20,
		EnableMetrics:      true,
	}
}

// GetConfig returns config loaded from environment
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	if len(opts) == 0 {
		opts = []config.LoadOptions{{Prefix: DefaultPrefix}}
	}

	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
