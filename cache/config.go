package cache

import (
	"strings"
	"time"

	"github.com/gobeaver/slack-auth/config"
)

// DefaultPrefix is the environment prefix for cache settings.
const DefaultPrefix = "BEAVER_CACHE_"

// Config holds cache configuration
type Config struct {
	// Driver specifies cache backend: "memory" or "redis"
	Driver string `env:"DRIVER,default:memory"`

	// Redis specific settings
	Host     string `env:"HOST,default:localhost"`
	Port     string `env:"PORT,default:6379"`
	Password string `env:"PASSWORD"`
	Database int    `env:"DATABASE,default:0"`

	// Connection URL (overrides host/port/password)
	URL string `env:"URL"`

	// Connection pool settings
	MaxRetries   int  `env:"MAX_RETRIES,default:3"`
	PoolSize     int  `env:"POOL_SIZE,default:10"`
	MinIdleConns int  `env:"MIN_IDLE_CONNS,default:2"`
	UseTLS       bool `env:"USE_TLS,default:false"`

	// Memory cache specific
	MaxKeys         int           `env:"MAX_KEYS,default:0"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL,default:1m"`

	// KeyPrefix is prepended to every key so several services can share one redis database.
	KeyPrefix string `env:"KEY_PREFIX"`
}

// GetConfig loads configuration from environment variables
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	if len(opts) == 0 {
		opts = []config.LoadOptions{{Prefix: DefaultPrefix}}
	}

	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}

	cfg.Driver = strings.ToLower(cfg.Driver)
	return cfg, nil
}
