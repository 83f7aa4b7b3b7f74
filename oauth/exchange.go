package oauth

import (
	"context"
	"net/url"
	"time"
)

// ExchangeFunc trades an authorization code (or, for refresh, a refresh
// token) for a Token. params carries the remaining form fields of the grant.
type ExchangeFunc func(ctx context.Context, code string, params url.Values) (*Token, error)

// ResolveToken decorates a base exchange so that sign-in works whether Slack
// puts the access token at the top level or only under authed_user.
//
// Errors from next are returned unchanged. When the response has a top-level
// access token it is returned as is. Otherwise the user token from
// authed_user is promoted into AccessToken together with its type, refresh
// token, scope and expiry wherever the top-level values are empty. A response
// with neither fails with ErrMissingAccessToken.
//
// In every successful case Token.AuthedUser carries the authed_user object
// when the response had one; it is the pending context used by the profile
// fetch and belongs to this attempt only.
func ResolveToken(next ExchangeFunc) ExchangeFunc {
	return func(ctx context.Context, code string, params url.Values) (*Token, error) {
		tok, err := next(ctx, code, params)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			tok = &Token{}
		}
		if tok.AuthedUser == nil {
			tok.AuthedUser = authedUserFromParams(tok.Raw)
		}

		if tok.AccessToken != "" {
			return tok, nil
		}

		au := tok.AuthedUser
		if au == nil || au.AccessToken == "" {
			return nil, &Error{Provider: ProviderName, Op: "exchange", Err: ErrMissingAccessToken}
		}

		tok.AccessToken = au.AccessToken
		tok.Promoted = true
		if tok.TokenType == "" {
			tok.TokenType = au.TokenType
		}
		if tok.RefreshToken == "" {
			tok.RefreshToken = au.RefreshToken
		}
		if tok.Scope == "" {
			tok.Scope = au.Scope
		}
		if tok.ExpiresIn == 0 && au.ExpiresIn > 0 {
			tok.ExpiresIn = au.ExpiresIn
			tok.ExpiresAt = time.Now().Add(time.Duration(au.ExpiresIn) * time.Second)
		}
		return tok, nil
	}
}

// tokenFromParams maps a decoded oauth.v2.access body onto a Token. The
// access token is left empty when the body has none at the top level.
func tokenFromParams(p Params) *Token {
	tok := &Token{
		AccessToken:  p.String("access_token"),
		TokenType:    p.String("token_type"),
		RefreshToken: p.String("refresh_token"),
		Scope:        p.String("scope"),
		ExpiresIn:    p.Int64("expires_in"),
		BotUserID:    p.String("bot_user_id"),
		AppID:        p.String("app_id"),
		Team:         teamFromParams(p.Object("team")),
		Enterprise:   teamFromParams(p.Object("enterprise")),
		AuthedUser:   authedUserFromParams(p),
		Raw:          p,
	}
	if tok.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return tok
}

func authedUserFromParams(p Params) *AuthedUser {
	au := p.Object("authed_user")
	if au == nil {
		return nil
	}
	return &AuthedUser{
		ID:           au.String("id"),
		Scope:        au.String("scope"),
		AccessToken:  au.String("access_token"),
		TokenType:    au.String("token_type"),
		RefreshToken: au.String("refresh_token"),
		ExpiresIn:    au.Int64("expires_in"),
		Raw:          au,
	}
}

func teamFromParams(p Params) *TeamRef {
	if p == nil {
		return nil
	}
	return &TeamRef{ID: p.String("id"), Name: p.String("name")}
}
