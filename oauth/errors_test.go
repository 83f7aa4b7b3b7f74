package oauth_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gobeaver/slack-auth/oauth"
	"github.com/gobeaver/slack-auth/slack"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"access_denied", oauth.ErrAccessDenied},
		{"invalid_code", oauth.ErrInvalidCode},
		{"code_already_used", oauth.ErrInvalidCode},
		{"bad_client_secret", oauth.ErrInvalidClient},
		{"bad_redirect_uri", oauth.ErrInvalidClient},
		{"invalid_scope", oauth.ErrInvalidScope},
		{"invalid_refresh_token", oauth.ErrInvalidRefreshToken},
		{"internal_error", oauth.ErrServerError},
		{"ratelimited", oauth.ErrTemporarilyUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := oauth.ParseError(oauth.ProviderName, "exchange", tt.code, "")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.code, err.Reason())
		})
	}

	unknown := oauth.ParseError(oauth.ProviderName, "exchange", "something_new", "details")
	assert.Nil(t, unknown.Err)
	assert.Equal(t, "oauth error [slack] exchange: details (something_new)", unknown.Error())
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  *oauth.Error
		want string
	}{
		{
			name: "code only",
			err:  &oauth.Error{Provider: "slack", Op: "profile", Code: "invalid_auth"},
			want: "oauth error [slack] profile: invalid_auth",
		},
		{
			name: "sentinel and cause",
			err:  &oauth.Error{Provider: "slack", Op: "exchange", Err: oauth.ErrNetworkError, Cause: cause},
			want: "oauth error [slack] exchange: network error: connection refused",
		},
		{
			name: "sentinel only",
			err:  oauth.WrapError("slack", "refresh", oauth.ErrNoRefreshToken),
			want: "oauth error [slack] refresh: no refresh token available",
		},
		{
			name: "no op",
			err:  oauth.NewError("slack", "invalid_auth", ""),
			want: "oauth error [slack]: invalid_auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := &slack.HTTPError{StatusCode: 503}
	err := fmt.Errorf("sign-in: %w", &oauth.Error{Provider: "slack", Op: "profile", Err: oauth.ErrProfileTransport, Cause: cause})

	assert.ErrorIs(t, err, oauth.ErrProfileTransport)
	var httpErr *slack.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)

	var oerr *oauth.Error
	assert.ErrorAs(t, err, &oerr)
	assert.Equal(t, oauth.ErrProfileTransport.Error(), oerr.Reason())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, oauth.IsRetryable(nil))
	assert.True(t, oauth.IsRetryable(oauth.WrapError("slack", "exchange", oauth.ErrNetworkError)))
	assert.True(t, oauth.IsRetryable(oauth.ParseError("slack", "exchange", "internal_error", "")))
	assert.True(t, oauth.IsRetryable(fmt.Errorf("wrapped: %w", slack.ErrCircuitOpen)))
	assert.True(t, oauth.IsRetryable(&slack.HTTPError{StatusCode: 502}))
	assert.False(t, oauth.IsRetryable(&slack.HTTPError{StatusCode: 404}))
	assert.False(t, oauth.IsRetryable(oauth.ParseError("slack", "exchange", "invalid_code", "")))
	assert.False(t, oauth.IsRetryable(oauth.ErrVerifyRejected))
}
