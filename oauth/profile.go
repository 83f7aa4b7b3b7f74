package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/gobeaver/slack-auth/slack"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FetchProfile loads the profile of the user recorded in pending with one
// bearer-authenticated GET to the configured profile URL.
//
// pending must be the AuthedUser of the token that produced accessToken;
// without it, or without its ID, the fetch fails with ErrProfileUnavailable
// and no request is sent. The user token in pending is the bearer when it
// has one, since the identity methods reject bot tokens; otherwise
// accessToken is used. Failures are normalized by profileError.
func (p *SlackProvider) FetchProfile(ctx context.Context, accessToken string, pending *AuthedUser) (*Profile, error) {
	if pending == nil || pending.ID == "" {
		return nil, &Error{Provider: ProviderName, Op: "profile", Err: ErrProfileUnavailable}
	}

	ctx, span := p.tracer.Start(ctx, "slack.oauth.profile")
	defer span.End()
	span.SetAttributes(attribute.String("slack.user_id", pending.ID))

	bearer := pending.AccessToken
	if bearer == "" {
		bearer = accessToken
	}

	start := time.Now()
	resp, err := p.api.Get(ctx, p.cfg.ProfileURL, url.Values{"user": {pending.ID}}, bearer)
	if err != nil {
		var body []byte
		var httpErr *slack.HTTPError
		if errors.As(err, &httpErr) {
			body = httpErr.Body
		}
		perr := profileError(ErrProfileTransport, body, err)
		p.recordProfile(span, start, perr)
		return nil, perr
	}

	profile, perr := parseProfile(resp.Body)
	p.recordProfile(span, start, perr)
	if perr != nil {
		return nil, perr
	}
	return profile, nil
}

func (p *SlackProvider) recordProfile(span trace.Span, start time.Time, err error) {
	if p.metrics != nil {
		p.metrics.RecordProfileFetch(err == nil, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile fetch failed")
		p.logger.Debug("Slack profile fetch failed", zap.Error(err))
	}
}

// parseProfile decodes a 2xx profile body. Raw is authoritative: only a body
// that is not a JSON object fails with ErrProfileParse. The typed fields are
// filled as far as the body's shape allows, so flat responses such as
// auth.test (string user and team, user_id, team_id) still normalize.
func parseProfile(body []byte) (*Profile, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, profileError(ErrProfileParse, nil, err)
	}

	ok, _ := raw["ok"].(bool)
	if !ok {
		return nil, profileError(ErrProfileProvider, body, nil)
	}

	profile := &Profile{}
	var typeErr *json.UnmarshalTypeError
	if err := json.Unmarshal(body, profile); err != nil && !errors.As(err, &typeErr) {
		return nil, profileError(ErrProfileParse, nil, err)
	}
	profile.OK = true
	fillFlatProfile(profile, raw)
	profile.Raw = raw
	return profile, nil
}

// fillFlatProfile copies identifiers from bodies that carry the user and
// team as plain strings next to user_id and team_id.
func fillFlatProfile(p *Profile, raw map[string]any) {
	str := func(key string) string {
		v, _ := raw[key].(string)
		return v
	}
	if p.User.ID == "" {
		p.User.ID = str("user_id")
	}
	if p.User.Name == "" {
		p.User.Name = str("user")
	}
	if p.Team.ID == "" {
		p.Team.ID = str("team_id")
	}
	if p.Team.Name == "" {
		p.Team.Name = str("team")
	}
}

// profileError is the single place where profile failures become errors.
// The reason is taken from the body when it is a Slack envelope: the error
// code first, then the message. A transport failure without a reason keeps
// the underlying error as Cause.
func profileError(kind error, body []byte, cause error) *Error {
	e := &Error{Provider: ProviderName, Op: "profile", Err: kind}
	if len(body) > 0 {
		if env, err := slack.ParseEnvelope(body); err == nil {
			e.Code = env.Reason()
			if env.Error != "" && env.Message != "" {
				e.Description = env.Message
			}
		}
	}
	if e.Code == "" || kind == ErrProfileTransport {
		e.Cause = cause
	}
	return e
}
