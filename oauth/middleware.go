package oauth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobeaver/slack-auth/config"
	"go.uber.org/zap"
)

// Handler serves the two endpoints of Slack sign-in. Mounting them on
// routes is left to the host application.
type Handler struct {
	Service *Service

	// Options supplies per-request authorize options to Begin. Configured
	// scopes are used when nil.
	Options func(r *http.Request) AuthorizeOptions

	// OnSuccess is called with the verified result. The default answers 204.
	OnSuccess func(w http.ResponseWriter, r *http.Request, res *Result)

	// OnFailure is called with any error from the callback. The default
	// answers 401.
	OnFailure func(w http.ResponseWriter, r *http.Request, err error)
}

// Begin redirects the browser to Slack's authorize page.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	var opts AuthorizeOptions
	if h.Options != nil {
		opts = h.Options(r)
	}

	authURL, _, err := h.Service.GetAuthURL(r.Context(), opts)
	if err != nil {
		h.Service.logger.Error("Failed to start Slack sign-in", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes sign-in for the redirect back from Slack.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Authenticate(r)
	if err != nil {
		if h.OnFailure != nil {
			h.OnFailure(w, r, err)
			return
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if h.OnSuccess != nil {
		h.OnSuccess(w, r, res)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MiddlewareConfig configures the OAuth middleware
type MiddlewareConfig struct {
	// Security headers
	EnableSecurityHeaders bool `env:"SECURITY_HEADERS,default:true"`
	EnableHSTS            bool `env:"HSTS_ENABLED,default:true"`
	HSTSMaxAge            int  `env:"HSTS_MAX_AGE,default:31536000"`

	// Rate limiting
	EnableRateLimiting bool          `env:"RATE_LIMITING,default:true"`
	RateLimit          int           `env:"RATE_LIMIT,default:30"`
	RateInterval       time.Duration `env:"RATE_INTERVAL,default:1m"`
	RateBurstSize      int           `env:"RATE_BURST,default:30"`

	// Request logging
	EnableLogging bool `env:"REQUEST_LOGGING,default:true"`

	// Security
	RequireHTTPS bool `env:"REQUIRE_HTTPS,default:false"`
	// TrustedProxies lists addresses or CIDRs whose forwarding headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// GetMiddlewareConfig loads MiddlewareConfig from the environment. Without
// options the DefaultPrefix is used.
func GetMiddlewareConfig(opts ...config.LoadOptions) (*MiddlewareConfig, error) {
	if len(opts) == 0 {
		opts = []config.LoadOptions{{Prefix: DefaultPrefix}}
	}
	cfg := &MiddlewareConfig{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load middleware config: %w", err)
	}
	return cfg, nil
}

// Middleware provides HTTP middleware for the sign-in endpoints
type Middleware struct {
	config      MiddlewareConfig
	rateLimiter RateLimiter
	metrics     MetricsCollector
	logger      *zap.Logger
	proxies     []*net.IPNet
}

// NewMiddleware creates a new OAuth middleware. Logging and rate limit hits
// go to the service's logger and metrics when s is not nil.
func NewMiddleware(cfg MiddlewareConfig, s *Service) (*Middleware, error) {
	m := &Middleware{config: cfg, logger: zap.NewNop()}
	if s != nil {
		m.logger = s.logger
		m.metrics = s.metrics
	}

	for _, p := range cfg.TrustedProxies {
		if !strings.Contains(p, "/") {
			if strings.Contains(p, ":") {
				p += "/128"
			} else {
				p += "/32"
			}
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted proxy %q: %v", ErrInvalidConfig, p, err)
		}
		m.proxies = append(m.proxies, n)
	}

	if cfg.EnableRateLimiting {
		m.rateLimiter = NewKeyedRateLimiter(RateLimiterConfig{
			Rate:      cfg.RateLimit,
			Interval:  cfg.RateInterval,
			BurstSize: cfg.RateBurstSize,
		})
	}
	return m, nil
}

// WithRateLimiter replaces the rate limiter
func (m *Middleware) WithRateLimiter(rl RateLimiter) *Middleware {
	m.rateLimiter = rl
	return m
}

// Close stops the background work of the built-in rate limiter
func (m *Middleware) Close() {
	if kl, ok := m.rateLimiter.(*KeyedRateLimiter); ok {
		kl.Close()
	}
}

// SecurityHeaders adds security headers to responses
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.EnableSecurityHeaders {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Cache-Control", "no-store")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			if m.config.EnableHSTS && m.isHTTPS(r) {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", m.config.HSTSMaxAge))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects clients over the configured rate with 429
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.EnableRateLimiting || m.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "ip:" + m.clientIP(r)
		allowed, err := m.rateLimiter.Allow(r.Context(), key)
		if err != nil {
			if errors.Is(err, ErrRateLimiterFull) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if status, _ := m.rateLimiter.GetStatus(r.Context(), key); status != nil {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(status.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
			if !allowed {
				retry := int(status.RetryAfter.Seconds() + 0.999)
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
		}

		if !allowed {
			if m.metrics != nil {
				m.metrics.RecordRateLimitHit(key)
			}
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogging logs each request. The query string is never logged since
// it carries the authorization code.
func (m *Middleware) RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.EnableLogging {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", m.clientIP(r)),
			zap.String("user_agent", r.UserAgent()),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Int("status", wrapped.statusCode),
			zap.Int("bytes", wrapped.bytesWritten),
			zap.Duration("duration", time.Since(start)))
	})
}

// RequireHTTPS ensures requests are made over HTTPS
func (m *Middleware) RequireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.RequireHTTPS && !m.isHTTPS(r) {
			http.Error(w, "HTTPS Required", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Chain combines multiple middleware functions
func (m *Middleware) Chain(handlers ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(handlers) - 1; i >= 0; i-- {
			final = handlers[i](final)
		}
		return final
	}
}

// DefaultChain returns the default middleware chain
func (m *Middleware) DefaultChain() func(http.Handler) http.Handler {
	return m.Chain(
		m.RequireHTTPS,
		m.SecurityHeaders,
		m.RateLimit,
		m.RequestLogging,
	)
}

func (m *Middleware) isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return m.fromTrustedProxy(r) && r.Header.Get("X-Forwarded-Proto") == "https"
}

// clientIP returns the caller's address. Forwarding headers are only
// honoured when the direct peer is a trusted proxy.
func (m *Middleware) clientIP(r *http.Request) string {
	if m.fromTrustedProxy(r) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	return remoteHost(r)
}

func (m *Middleware) fromTrustedProxy(r *http.Request) bool {
	ip := net.ParseIP(remoteHost(r))
	if ip == nil {
		return false
	}
	for _, n := range m.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}
