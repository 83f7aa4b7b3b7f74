package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gobeaver/slack-auth/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/gobeaver/slack-auth/oauth"

// SlackProvider speaks Slack's OAuth v2 endpoints. It holds no per-attempt
// state and is safe for concurrent use.
type SlackProvider struct {
	cfg      Config
	oauth2   *oauth2.Config
	api      *slack.Client
	exchange ExchangeFunc
	refresh  ExchangeFunc
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  MetricsCollector
}

// NewSlackProvider creates a provider from cfg that sends every request
// through api. Empty optional fields of cfg take their defaults.
func NewSlackProvider(cfg Config, api *slack.Client) (*SlackProvider, error) {
	cfg = cfg.withDefaults()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, errors.New("slack API client required")
	}
	return newSlackProvider(cfg, api, zap.NewNop(), otel.Tracer(tracerName), nil), nil
}

func newSlackProvider(cfg Config, api *slack.Client, logger *zap.Logger, tracer trace.Tracer, metrics MetricsCollector) *SlackProvider {
	p := &SlackProvider{
		cfg: cfg,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizationURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api:     api,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
	}
	p.exchange = ResolveToken(p.exchangeCode)
	p.refresh = ResolveToken(p.refreshGrant)
	return p
}

// Name returns the provider name
func (p *SlackProvider) Name() string {
	return ProviderName
}

// reservedAuthParams are set from the provider config and the issued state;
// ExtraParams cannot replace them.
var reservedAuthParams = map[string]bool{
	"client_id":     true,
	"redirect_uri":  true,
	"response_type": true,
	"state":         true,
}

// AuthCodeURL returns the Slack authorize URL for state. Scopes are joined
// with the configured separator and user scopes with a comma. Scope, user
// scope, team and PKCE parameters win over ExtraParams; reserved OAuth
// parameters in ExtraParams are dropped.
func (p *SlackProvider) AuthCodeURL(state string, opts AuthorizeOptions, pkce *PKCEChallenge) string {
	var params []oauth2.AuthCodeOption
	for k, v := range opts.ExtraParams {
		if reservedAuthParams[k] {
			continue
		}
		params = append(params, oauth2.SetAuthURLParam(k, v))
	}

	scopes := opts.Scopes
	if scopes == nil {
		scopes = p.cfg.Scopes
	}
	if len(scopes) > 0 {
		params = append(params, oauth2.SetAuthURLParam("scope", strings.Join(scopes, p.cfg.ScopeSeparator)))
	}

	userScopes := opts.UserScopes
	if userScopes == nil {
		userScopes = p.cfg.UserScopes
	}
	if len(userScopes) > 0 {
		params = append(params, oauth2.SetAuthURLParam("user_scope", strings.Join(userScopes, ",")))
	}

	team := opts.Team
	if team == "" {
		team = p.cfg.Team
	}
	if team != "" {
		params = append(params, oauth2.SetAuthURLParam("team", team))
	}

	params = append(params, pkce.authCodeOptions()...)
	return p.oauth2.AuthCodeURL(state, params...)
}

// Exchange trades an authorization code for a resolved token. params may
// carry code_verifier.
func (p *SlackProvider) Exchange(ctx context.Context, code string, params url.Values) (*Token, error) {
	ctx, span := p.tracer.Start(ctx, "slack.oauth.exchange")
	defer span.End()

	start := time.Now()
	tok, err := p.exchange(ctx, code, params)
	if p.metrics != nil {
		p.metrics.RecordTokenExchange(err == nil, time.Since(start))
		if err == nil && tok.Promoted {
			p.metrics.RecordTokenPromotion()
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token exchange failed")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("slack.token_promoted", tok.Promoted))
	p.logger.Debug("Slack token exchanged",
		zap.String("access_token", redactToken(tok.AccessToken)),
		zap.String("token_type", tok.TokenType),
		zap.Bool("promoted", tok.Promoted))
	return tok, nil
}

// Refresh trades a refresh token for a new token pair. Slack rotates the
// refresh token, so the returned one replaces the old.
func (p *SlackProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, span := p.tracer.Start(ctx, "slack.oauth.refresh")
	defer span.End()

	start := time.Now()
	tok, err := p.refresh(ctx, refreshToken, nil)
	if p.metrics != nil {
		p.metrics.RecordTokenRefresh(err == nil, time.Since(start))
	}
	if err != nil {
		if oerr := (*Error)(nil); errors.As(err, &oerr) && oerr.Op == "exchange" {
			oerr.Op = "refresh"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "token refresh failed")
		return nil, err
	}
	return tok, nil
}

// Revoke invalidates token with auth.revoke.
func (p *SlackProvider) Revoke(ctx context.Context, token string) error {
	ctx, span := p.tracer.Start(ctx, "slack.oauth.revoke")
	defer span.End()

	start := time.Now()
	err := p.revoke(ctx, token)
	if p.metrics != nil {
		p.metrics.RecordRevoke(err == nil, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
	}
	return err
}

func (p *SlackProvider) revoke(ctx context.Context, token string) error {
	resp, err := p.api.PostForm(ctx, p.cfg.RevokeURL, url.Values{}, token)
	if err != nil {
		return providerError("revoke", err)
	}
	env, err := slack.ParseEnvelope(resp.Body)
	if err != nil {
		return &Error{Provider: ProviderName, Op: "revoke", Err: ErrInvalidResponse, Cause: err}
	}
	if !env.OK {
		return ParseError(ProviderName, "revoke", env.Reason(), "")
	}
	return nil
}

// exchangeCode is the base authorization code grant. It does not look at
// authed_user; ResolveToken does.
func (p *SlackProvider) exchangeCode(ctx context.Context, code string, params url.Values) (*Token, error) {
	form := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.cfg.CallbackURL},
		"grant_type":    {"authorization_code"},
	}
	for k, vs := range params {
		if _, set := form[k]; !set {
			form[k] = vs
		}
	}
	return p.tokenRequest(ctx, "exchange", form)
}

func (p *SlackProvider) refreshGrant(ctx context.Context, refreshToken string, _ url.Values) (*Token, error) {
	form := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	return p.tokenRequest(ctx, "refresh", form)
}

// tokenRequest posts form to the token URL and decodes the response. Slack
// answers most failures with status 200 and ok set to false.
func (p *SlackProvider) tokenRequest(ctx context.Context, op string, form url.Values) (*Token, error) {
	resp, err := p.api.PostForm(ctx, p.cfg.TokenURL, form, "")
	if err != nil {
		return nil, providerError(op, err)
	}

	params := Params{}
	if err := json.Unmarshal(resp.Body, &params); err != nil {
		return nil, &Error{Provider: ProviderName, Op: op, Err: ErrInvalidResponse, Cause: err}
	}

	ok, hasOK := params["ok"].(bool)
	if code := params.String("error"); code != "" || (hasOK && !ok) {
		if code == "" {
			code = "unknown_error"
		}
		return nil, ParseError(ProviderName, op, code, params.String("error_description"))
	}

	return tokenFromParams(params), nil
}

// providerError classifies a failed Slack API call. A non-2xx response that
// carries a Slack envelope keeps its error code.
func providerError(op string, err error) error {
	var httpErr *slack.HTTPError
	if errors.As(err, &httpErr) {
		if env, perr := slack.ParseEnvelope(httpErr.Body); perr == nil && env.Reason() != "" {
			e := ParseError(ProviderName, op, env.Reason(), "")
			if e.Err == nil && httpErr.StatusCode >= 500 {
				e.Err = ErrServerError
			}
			e.Cause = err
			return e
		}
		sentinel := ErrInvalidResponse
		if httpErr.StatusCode >= 500 {
			sentinel = ErrServerError
		}
		return &Error{Provider: ProviderName, Op: op, Err: sentinel, Cause: err}
	}
	return &Error{Provider: ProviderName, Op: op, Err: ErrNetworkError, Cause: err}
}
