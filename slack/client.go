package slack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/gobeaver/slack-auth/slack"

// Client calls Slack Web API methods. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	maxBody    int64
	httpClient *http.Client
	limiter    RateLimiter
	breaker    *CircuitBreaker
	metrics    *Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request and response diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// Response is a completed Web API call
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a Client from cfg
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = DefaultConfig().MaxResponseSize
	}

	c := &Client{
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		maxBody:    cfg.MaxResponseSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		breaker:    NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, cfg.CircuitMaxRequests),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	if cfg.EnableMetrics {
		c.metrics = NewMetrics()
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker.onOpen = func() {
		c.logger.Warn("Slack API circuit opened")
		if c.metrics != nil {
			c.metrics.RecordCircuitOpen()
		}
	}

	return c, nil
}

// Get calls endpoint with query parameters. A non-empty token is sent as a
// bearer Authorization header.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, token string) (*Response, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := target.Query()
		for k, vs := range query {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, token)
}

// PostForm calls endpoint with a form encoded body.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, token string) (*Response, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, token)
}

// Stats returns call statistics. It is the zero value when metrics are disabled.
func (c *Client) Stats() Stats {
	if c.metrics == nil {
		return Stats{}
	}
	return c.metrics.GetStats()
}

// CircuitState reports the breaker state, used by health checks.
func (c *Client) CircuitState() CircuitState {
	return c.breaker.State()
}

// resolve accepts either an absolute URL or a method name relative to the base URL.
func (c *Client) resolve(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint %q: %v", ErrInvalidConfig, endpoint, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	return c.baseURL.ResolveReference(u), nil
}

func (c *Client) do(req *http.Request, token string) (*Response, error) {
	ctx, span := c.tracer.Start(req.Context(), "slack "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
			attribute.String("server.address", req.URL.Host),
		))
	defer span.End()
	req = req.WithContext(ctx)

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		c.recordRateLimit()
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limited")
		return nil, err
	}
	if err := c.breaker.Allow(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "circuit open")
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordRequest()
	}

	c.logger.Debug("Slack API request",
		zap.String("method", req.Method),
		zap.String("url", RedactURL(req.URL)))

	start := time.Now()
	resp, err := c.clientFor(ctx, token).Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.recordFailure("transport")
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.Debug("Slack API transport error", zap.String("url", RedactURL(req.URL)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		c.breaker.RecordFailure()
		c.recordFailure("read")
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		c.breaker.RecordSuccess()
		c.recordFailure("too_large")
		return nil, ErrResponseTooLarge
	}

	latency := time.Since(start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("Slack API response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
		zap.String("body", RedactBody(string(body))))

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode == http.StatusTooManyRequests {
			httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			c.recordRateLimit()
		}
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		c.recordFailure(strconv.Itoa(resp.StatusCode))
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return out, httpErr
	}

	c.breaker.RecordSuccess()
	if c.metrics != nil {
		c.metrics.RecordSuccess(latency)
	}
	return out, nil
}

// clientFor returns an HTTP client that adds a bearer token through the
// oauth2 transport, or the plain client when token is empty.
func (c *Client) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func (c *Client) recordFailure(reason string) {
	if c.metrics != nil {
		c.metrics.RecordFailure(reason)
	}
}

func (c *Client) recordRateLimit() {
	if c.metrics != nil {
		c.metrics.RecordRateLimit()
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
