package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gobeaver/slack-auth/cache"
	"github.com/gobeaver/slack-auth/slack"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Global instance management
var (
	defaultService *Service
	defaultOnce    sync.Once
	defaultErr     error
)

// Service runs Slack sign-in: it issues authorize redirects and turns
// callbacks into a resolved token, a profile and a verified identity.
// It is safe for concurrent use; nothing from one attempt is visible to another.
type Service struct {
	config   Config
	provider *SlackProvider
	api      *slack.Client
	states   StateStore
	cache    cache.Cache
	verify   verifyAdapter
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  MetricsCollector
}

type options struct {
	verify     VerifyFunc
	verifyReq  VerifyRequestFunc
	states     StateStore
	cache      cache.Cache
	logger     *zap.Logger
	api        *slack.Client
	httpClient *http.Client
	tp         trace.TracerProvider
	metrics    MetricsCollector
}

// Option configures a Service
type Option func(*options)

// WithVerify sets the verify callback used when PassRequestToCallback is false.
func WithVerify(fn VerifyFunc) Option {
	return func(o *options) { o.verify = fn }
}

// WithVerifyRequest sets the verify callback used when PassRequestToCallback is true.
func WithVerifyRequest(fn VerifyRequestFunc) Option {
	return func(o *options) { o.verifyReq = fn }
}

// WithStateStore replaces the state store selected by Config.StateStore.
func WithStateStore(s StateStore) Option {
	return func(o *options) { o.states = s }
}

// WithCache sets the cache backing the "cache" state store. An in-memory
// cache is created when none is given.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger sets the logger. NewLogger(cfg.Debug, cfg.LogLevel) is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAPIClient sets the Slack API client used for every outbound call.
func WithAPIClient(c *slack.Client) Option {
	return func(o *options) { o.api = c }
}

// WithHTTPClient sets the HTTP client of the default Slack API client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTracerProvider sets the tracer provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

// Init initializes the global OAuth service. Without a config, the oauth,
// Slack API client and cache settings are all loaded from the environment.
func Init(configs ...Config) error {
	if len(configs) > 0 {
		return initDefault(&configs[0], nil)
	}
	return initDefault(nil, nil)
}

func initDefault(cfg *Config, opts []Option) error {
	defaultOnce.Do(func() {
		if cfg == nil {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		var apiCfg *slack.Config
		apiCfg, defaultErr = slack.GetConfig()
		if defaultErr != nil {
			return
		}
		if apiCfg.Timeout <= 0 {
			apiCfg.Timeout = cfg.HTTPTimeout
		}
		var api *slack.Client
		api, defaultErr = slack.New(*apiCfg, slack.WithLogger(NewLogger(cfg.Debug, cfg.LogLevel)))
		if defaultErr != nil {
			return
		}
		base := []Option{WithAPIClient(api)}

		if cfg.StateStore == "" || cfg.StateStore == "cache" {
			var cacheCfg *cache.Config
			cacheCfg, defaultErr = cache.GetConfig()
			if defaultErr != nil {
				return
			}
			var c cache.Cache
			c, defaultErr = cache.New(*cacheCfg)
			if defaultErr != nil {
				return
			}
			base = append(base, WithCache(c))
		}

		defaultService, defaultErr = New(*cfg, append(base, opts...)...)
	})
	return defaultErr
}

// New creates a new OAuth service instance
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	verify, err := newVerifyAdapter(cfg.PassRequestToCallback, o.verify, o.verifyReq)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.Debug, cfg.LogLevel)
	}

	tracer := otel.Tracer(tracerName)
	if o.tp != nil {
		tracer = o.tp.Tracer(tracerName)
	}

	api := o.api
	if api == nil {
		apiCfg := slack.DefaultConfig()
		apiCfg.Timeout = cfg.HTTPTimeout
		apiOpts := []slack.Option{slack.WithLogger(logger), slack.WithHTTPClient(o.httpClient)}
		if o.tp != nil {
			apiOpts = append(apiOpts, slack.WithTracerProvider(o.tp))
		}
		if api, err = slack.New(apiCfg, apiOpts...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	metrics := o.metrics
	if metrics == nil {
		metrics = NewDefaultMetricsCollector()
	}

	s := &Service{
		config:   cfg,
		provider: newSlackProvider(cfg, api, logger, tracer, metrics),
		api:      api,
		cache:    o.cache,
		verify:   verify,
		logger:   logger,
		tracer:   tracer,
		metrics:  metrics,
	}

	s.states = o.states
	if s.states == nil {
		if s.states, err = s.newStateStore(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) newStateStore() (StateStore, error) {
	switch s.config.StateStore {
	case "signed":
		return NewSignedStateStore([]byte(s.config.StateSigningKey))
	default:
		gen, err := newStateGenerator(s.config.StateGenerator)
		if err != nil {
			return nil, err
		}
		if s.cache == nil {
			s.cache = cache.NewMemory(cache.Config{CleanupInterval: time.Minute})
		}
		return NewCacheStateStore(s.cache, gen), nil
	}
}

// GetAuthURL records a pending authorization and returns the Slack authorize
// URL together with its state value.
func (s *Service) GetAuthURL(ctx context.Context, opts AuthorizeOptions) (string, string, error) {
	if s == nil {
		return "", "", ErrNotInitialized
	}

	now := time.Now()
	session := &SessionData{
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.StateTTL),
		Provider:  s.provider.Name(),
		Metadata:  opts.Metadata,
	}
	if s.config.PKCEEnabled {
		session.PKCEChallenge = GeneratePKCEChallenge()
	}

	state, err := s.states.Issue(ctx, session)
	if err != nil {
		return "", "", err
	}

	return s.provider.AuthCodeURL(state, opts, session.PKCEChallenge), state, nil
}

// Exchange consumes state and exchanges code for a resolved token. A state
// value can be used once.
func (s *Service) Exchange(ctx context.Context, code, state string) (*Token, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	tok, _, err := s.exchange(ctx, code, state)
	return tok, err
}

func (s *Service) exchange(ctx context.Context, code, state string) (*Token, *SessionData, error) {
	if code == "" {
		return nil, nil, &Error{Provider: ProviderName, Op: "callback", Err: ErrMissingCode}
	}

	session, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if session.Provider != "" && session.Provider != s.provider.Name() {
		return nil, nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	params := url.Values{}
	if session.PKCEChallenge != nil {
		params.Set("code_verifier", session.PKCEChallenge.Verifier)
	}

	tok, err := s.provider.Exchange(ctx, code, params)
	if err != nil {
		return nil, nil, err
	}
	return tok, session, nil
}

// FetchProfile fetches the profile of the user who authorized tok.
func (s *Service) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if tok == nil {
		return nil, &Error{Provider: ProviderName, Op: "profile", Err: ErrProfileUnavailable}
	}
	return s.provider.FetchProfile(ctx, tok.AccessToken, tok.AuthedUser)
}

// Authenticate handles a Slack callback request: it checks for a denial,
// exchanges the code, fetches the profile unless SkipUserProfile is set and
// hands the result to the verify callback.
func (s *Service) Authenticate(r *http.Request) (*Result, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}

	attemptID := uuid.NewString()
	ctx, span := s.tracer.Start(r.Context(), "slack.oauth.callback",
		trace.WithAttributes(attribute.String("slack.attempt_id", attemptID)))
	defer span.End()
	r = r.WithContext(ctx)

	start := time.Now()
	res, err := s.authenticate(r, attemptID)
	s.metrics.RecordAuthRequest(err == nil, time.Since(start))

	log := s.logger.With(zap.String("attempt_id", attemptID))
	if err != nil {
		s.metrics.RecordError("callback", errorType(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
		log.Info("Slack sign-in failed", zap.Error(err))
		return nil, err
	}
	log.Info("Slack sign-in succeeded",
		zap.Bool("promoted", res.Token.Promoted),
		zap.Bool("profile", res.Profile != nil))
	return res, nil
}

func (s *Service) authenticate(r *http.Request, attemptID string) (*Result, error) {
	q := r.URL.Query()
	if code := q.Get("error"); code != "" {
		return nil, ParseError(ProviderName, "callback", code, q.Get("error_description"))
	}

	tok, session, err := s.exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		return nil, err
	}

	var profile *Profile
	if !s.config.SkipUserProfile {
		if profile, err = s.FetchProfile(r.Context(), tok); err != nil {
			return nil, err
		}
	}

	identity, info, err := s.verify(r, tok.AccessToken, tok.RefreshToken, tok.Raw, profile)
	if err != nil {
		var oerr *Error
		if errors.As(err, &oerr) {
			return nil, err
		}
		return nil, &Error{Provider: ProviderName, Op: "verify", Err: err}
	}
	if noIdentity(identity) {
		return nil, rejected(info)
	}

	return &Result{
		AttemptID: attemptID,
		Identity:  identity,
		Info:      info,
		Token:     tok,
		Profile:   profile,
		Metadata:  session.Metadata,
	}, nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if refreshToken == "" {
		return nil, &Error{Provider: ProviderName, Op: "refresh", Err: ErrNoRefreshToken}
	}
	tok, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordError("refresh", errorType(err))
		return nil, err
	}
	return tok, nil
}

// RevokeToken revokes an access token
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	if s == nil {
		return ErrNotInitialized
	}
	if token == "" {
		return fmt.Errorf("%w: token required", ErrInvalidConfig)
	}
	if err := s.provider.Revoke(ctx, token); err != nil {
		s.metrics.RecordError("revoke", errorType(err))
		return err
	}
	return nil
}

// Metrics returns a snapshot of the service metrics, including the Slack
// API client statistics.
func (s *Service) Metrics() *Metrics {
	if s == nil {
		return nil
	}
	m := s.metrics.GetMetrics()
	if m == nil {
		m = &Metrics{}
	}
	m.API = s.api.Stats()
	return m
}

// Provider returns the Slack provider
func (s *Service) Provider() *SlackProvider {
	if s == nil {
		return nil
	}
	return s.provider
}

// Config returns the service configuration
func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Close releases the cache behind the state store.
func (s *Service) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Reset clears the global instance (for testing)
func Reset() {
	if defaultService != nil {
		_ = defaultService.Close()
	}
	defaultService = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// GetService returns the global OAuth service instance
func GetService() *Service {
	if defaultService == nil {
		_ = Init()
	}
	return defaultService
}

// OAuth is an alias for GetService()
func OAuth() *Service {
	return GetService()
}
