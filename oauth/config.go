package oauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gobeaver/slack-auth/config"
	"github.com/gobeaver/slack-auth/krypto"
)

// DefaultPrefix is the environment prefix used by GetConfig and Init.
const DefaultPrefix = "BEAVER_SLACK_OAUTH_"

// Slack endpoints used when the configuration leaves them empty.
const (
	DefaultAuthorizationURL = "https://slack.com/oauth/v2/authorize"
	DefaultTokenURL         = "https://slack.com/api/oauth.v2.access"
	DefaultProfileURL       = "https://slack.com/api/users.identity"
	DefaultRevokeURL        = "https://slack.com/api/auth.revoke"
)

// Config defines the Slack OAuth service configuration
type Config struct {
	// ClientID is the Slack app's client ID
	ClientID string `env:"CLIENT_ID,required"`

	// ClientSecret is the Slack app's client secret
	ClientSecret string `env:"CLIENT_SECRET,required"`

	// CallbackURL is the redirect_uri registered with the Slack app
	CallbackURL string `env:"CALLBACK_URL,required"`

	AuthorizationURL string `env:"AUTHORIZATION_URL,default:https://slack.com/oauth/v2/authorize"`
	TokenURL         string `env:"TOKEN_URL,default:https://slack.com/api/oauth.v2.access"`
	ProfileURL       string `env:"PROFILE_URL,default:https://slack.com/api/users.identity"`
	RevokeURL        string `env:"REVOKE_URL,default:https://slack.com/api/auth.revoke"`

	// ScopeSeparator joins Scopes in the authorize request. Slack expects commas.
	ScopeSeparator string `env:"SCOPE_SEPARATOR,default:,"`

	// Scopes are bot scopes requested as `scope`
	Scopes []string `env:"SCOPES"`

	// UserScopes are requested as `user_scope`; sign-in needs at least identity.basic
	UserScopes []string `env:"USER_SCOPES,default:identity.basic"`

	// Team restricts the authorize page to one workspace
	Team string `env:"TEAM"`

	// SkipUserProfile ends the flow after the token exchange
	SkipUserProfile bool `env:"SKIP_USER_PROFILE,default:false"`

	// PassRequestToCallback selects the verify callback that receives the
	// callback *http.Request
	PassRequestToCallback bool `env:"PASS_REQUEST_TO_CALLBACK,default:false"`

	// PKCEEnabled adds an S256 code challenge to the authorize request
	PKCEEnabled bool `env:"PKCE_ENABLED,default:false"`

	// StateStore selects where pending authorizations live (cache, signed)
	StateStore string `env:"STATE_STORE,default:cache"`

	// StateGenerator defines how to generate state tokens (secure, uuid)
	StateGenerator string `env:"STATE_GENERATOR,default:secure"`

	// StateSigningKey is the HS256 key for the signed state store
	StateSigningKey string `env:"STATE_SIGNING_KEY"`

	// StateTTL is how long a pending authorization stays valid
	StateTTL time.Duration `env:"STATE_TTL,default:10m"`

	// HTTPTimeout is the timeout for calls to Slack
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default:10s"`

	Debug    bool   `env:"DEBUG,default:false"`
	LogLevel string `env:"LOG_LEVEL,default:info"`
}

// DefaultConfig returns a Config with every optional field at its default.
// Credentials and the callback URL still have to be filled in.
func DefaultConfig() Config {
	return Config{
		AuthorizationURL: DefaultAuthorizationURL,
		TokenURL:         DefaultTokenURL,
		ProfileURL:       DefaultProfileURL,
		RevokeURL:        DefaultRevokeURL,
		ScopeSeparator:   ",",
		UserScopes:       []string{"identity.basic"},
		StateStore:       "cache",
		StateGenerator:   "secure",
		StateTTL:         10 * time.Minute,
		HTTPTimeout:      10 * time.Second,
		LogLevel:         "info",
	}
}

// GetConfig returns config loaded from environment with optional LoadOptions.
// Without options the DefaultPrefix is used.
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	if len(opts) == 0 {
		opts = []config.LoadOptions{{Prefix: DefaultPrefix}}
	}
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load oauth config: %w", err)
	}
	return cfg, nil
}

// withDefaults fills empty optional fields, so a partially built Config
// behaves like one loaded from the environment.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AuthorizationURL == "" {
		c.AuthorizationURL = d.AuthorizationURL
	}
	if c.TokenURL == "" {
		c.TokenURL = d.TokenURL
	}
	if c.ProfileURL == "" {
		c.ProfileURL = d.ProfileURL
	}
	if c.RevokeURL == "" {
		c.RevokeURL = d.RevokeURL
	}
	if c.ScopeSeparator == "" {
		c.ScopeSeparator = d.ScopeSeparator
	}
	if c.StateStore == "" {
		c.StateStore = d.StateStore
	}
	if c.StateGenerator == "" {
		c.StateGenerator = d.StateGenerator
	}
	if c.StateTTL <= 0 {
		c.StateTTL = d.StateTTL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if len(c.Scopes) == 0 && len(c.UserScopes) == 0 {
		c.UserScopes = d.UserScopes
	}
	c.StateStore = strings.ToLower(c.StateStore)
	c.StateGenerator = strings.ToLower(c.StateGenerator)
	// copy slices so the service never shares backing arrays with the caller
	c.Scopes = append([]string(nil), c.Scopes...)
	c.UserScopes = append([]string(nil), c.UserScopes...)
	return c
}

// validateConfig checks configuration validity
func validateConfig(cfg Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("%w: client_id required", ErrInvalidConfig)
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client_secret required", ErrInvalidConfig)
	}
	if cfg.CallbackURL == "" {
		return fmt.Errorf("%w: callback_url required", ErrInvalidConfig)
	}

	for name, raw := range map[string]string{
		"callback_url":      cfg.CallbackURL,
		"authorization_url": cfg.AuthorizationURL,
		"token_url":         cfg.TokenURL,
		"profile_url":       cfg.ProfileURL,
		"revoke_url":        cfg.RevokeURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL: %q", ErrInvalidConfig, name, raw)
		}
	}

	switch cfg.StateGenerator {
	case "secure", "uuid":
	default:
		return fmt.Errorf("%w: unknown state generator: %s", ErrInvalidConfig, cfg.StateGenerator)
	}

	switch cfg.StateStore {
	case "cache":
	case "signed":
		if len(cfg.StateSigningKey) < krypto.MinHS256KeyLength {
			return fmt.Errorf("%w: state_signing_key must be at least %d bytes", ErrInvalidConfig, krypto.MinHS256KeyLength)
		}
		if cfg.PKCEEnabled {
			return fmt.Errorf("%w: the signed state store cannot carry a PKCE verifier", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state store: %s", ErrInvalidConfig, cfg.StateStore)
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http_timeout must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Builder pattern for custom prefixes
type Builder struct {
	prefix string
	opts   []Option
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// WithOptions adds service options applied by Init and New.
func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Init initializes the global OAuth service with the builder's prefix
func (b *Builder) Init() error {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return err
	}
	return initDefault(cfg, b.opts)
}

// New creates a new OAuth service instance with the builder's prefix
func (b *Builder) New() (*Service, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(*cfg, b.opts...)
}
