package oauth

import (
	"errors"
	"fmt"

	"github.com/gobeaver/slack-auth/slack"
)

// Package-level errors
var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotInitialized indicates the service hasn't been initialized
	ErrNotInitialized = errors.New("oauth service not initialized")

	// ErrInvalidState indicates state parameter mismatch (CSRF protection)
	ErrInvalidState = errors.New("invalid state parameter")

	// ErrSessionNotFound indicates no pending authorization matches the state
	ErrSessionNotFound = errors.New("session not found")

	// ErrMissingCode indicates the callback carried neither a code nor an error
	ErrMissingCode = errors.New("authorization code missing from callback")

	// ErrInvalidCode indicates invalid, expired or reused authorization code
	ErrInvalidCode = errors.New("invalid authorization code")

	// ErrInvalidClient indicates the client credentials or redirect URI were rejected
	ErrInvalidClient = errors.New("invalid client credentials")

	// ErrAccessDenied indicates user denied access
	ErrAccessDenied = errors.New("access denied by user")

	// ErrInvalidScope indicates invalid or unauthorized scope
	ErrInvalidScope = errors.New("invalid scope")

	// ErrNoRefreshToken indicates no refresh token is available
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrInvalidRefreshToken indicates the refresh token was rejected
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrNetworkError indicates the provider could not be reached
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates an undecodable response from the provider
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrServerError indicates provider server error
	ErrServerError = errors.New("provider server error")

	// ErrTemporarilyUnavailable indicates service temporarily unavailable
	ErrTemporarilyUnavailable = errors.New("service temporarily unavailable")

	// ErrVerifyRejected indicates the verify callback returned no identity
	ErrVerifyRejected = errors.New("verification rejected")
)

// Token and profile negotiation errors
var (
	// ErrMissingAccessToken indicates the token response carried neither a
	// top-level nor an authed_user access token.
	ErrMissingAccessToken = errors.New("no access token returned")

	// ErrProfileUnavailable indicates a profile fetch without a pending user context.
	ErrProfileUnavailable = errors.New("user profile unavailable")

	// ErrProfileTransport indicates a network or HTTP failure fetching the profile.
	ErrProfileTransport = errors.New("failed to fetch user profile")

	// ErrProfileParse indicates the profile body was not valid JSON.
	ErrProfileParse = errors.New("failed to parse user profile")

	// ErrProfileProvider indicates a well-formed response with ok set to false.
	ErrProfileProvider = errors.New("profile request rejected by provider")
)

// Error represents a detailed OAuth error
type Error struct {
	Provider    string // Provider where error occurred
	Op          string // Operation: exchange, refresh, profile, revoke, callback, verify
	Code        string // Provider reason, e.g. "invalid_auth"
	Description string // Human-readable error description
	Err         error  // Sentinel classifying the failure
	Cause       error  // Underlying transport or decode error
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := fmt.Sprintf("oauth error [%s]", e.Provider)
	if e.Op != "" {
		prefix += " " + e.Op
	}

	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s (%s)", prefix, e.Description, e.Code)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", prefix, e.Code)
	case e.Err != nil && e.Cause != nil:
		return fmt.Sprintf("%s: %v: %v", prefix, e.Err, e.Cause)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Reason returns the provider supplied reason, or the sentinel text when the
// provider gave none.
func (e *Error) Reason() string {
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return ""
}

// NewError creates a new OAuth error
func NewError(provider, code, description string) *Error {
	return &Error{
		Provider:    provider,
		Code:        code,
		Description: description,
	}
}

// WrapError wraps an error with OAuth context
func WrapError(provider, op string, err error) *Error {
	return &Error{
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}

// ParseError maps an error code returned by Slack, either from a callback
// redirect or an ok:false body, onto the package sentinels.
func ParseError(provider, op, code, description string) *Error {
	oauthErr := &Error{
		Provider:    provider,
		Op:          op,
		Code:        code,
		Description: description,
	}

	switch code {
	case "access_denied":
		oauthErr.Err = ErrAccessDenied
	case "invalid_code", "code_already_used", "code_expired", "invalid_grant", "invalid_request":
		oauthErr.Err = ErrInvalidCode
	case "invalid_client_id", "bad_client_secret", "bad_redirect_uri", "invalid_client",
		"oauth_authorization_url_mismatch", "unauthorized_client":
		oauthErr.Err = ErrInvalidClient
	case "invalid_scope", "invalid_team_for_non_distributed_app":
		oauthErr.Err = ErrInvalidScope
	case "invalid_refresh_token", "token_expired", "token_revoked":
		oauthErr.Err = ErrInvalidRefreshToken
	case "server_error", "internal_error", "fatal_error":
		oauthErr.Err = ErrServerError
	case "temporarily_unavailable", "service_unavailable", "request_timeout", "ratelimited":
		oauthErr.Err = ErrTemporarilyUnavailable
	}

	return oauthErr
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNetworkError) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrTemporarilyUnavailable) ||
		errors.Is(err, slack.ErrRateLimited) ||
		errors.Is(err, slack.ErrCircuitOpen) {
		return true
	}

	var httpErr *slack.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}

	return false
}
