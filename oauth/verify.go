package oauth

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
)

// VerifyFunc decides who signed in. It receives the resolved access token,
// the raw token response and the fetched profile (nil when SkipUserProfile is
// set). Returning a nil identity with a nil error rejects the attempt, typed
// nil pointers included; info may explain why.
type VerifyFunc func(ctx context.Context, accessToken string, params Params, profile *Profile) (identity any, info Info, err error)

// VerifyRequestFunc is VerifyFunc with the callback request as its first
// argument. It is used when Config.PassRequestToCallback is set.
type VerifyRequestFunc func(r *http.Request, accessToken string, params Params, profile *Profile) (identity any, info Info, err error)

// verifyAdapter is the shape the callback handler calls. It carries the
// refresh token as well, which neither user-facing shape receives.
type verifyAdapter func(r *http.Request, accessToken, refreshToken string, params Params, profile *Profile) (any, Info, error)

// newVerifyAdapter selects one of the two user-facing shapes from the
// passRequest flag. Supplying the shape the flag does not select is a
// configuration error. With neither supplied the profile, or the token when
// the profile is skipped, is used as the identity.
func newVerifyAdapter(passRequest bool, verify VerifyFunc, verifyReq VerifyRequestFunc) (verifyAdapter, error) {
	switch {
	case passRequest && verify != nil:
		return nil, fmt.Errorf("%w: PassRequestToCallback requires a VerifyRequestFunc", ErrInvalidConfig)
	case !passRequest && verifyReq != nil:
		return nil, fmt.Errorf("%w: a VerifyRequestFunc requires PassRequestToCallback", ErrInvalidConfig)
	case passRequest && verifyReq != nil:
		return func(r *http.Request, accessToken, _ string, params Params, profile *Profile) (any, Info, error) {
			return verifyReq(r, accessToken, params, profile)
		}, nil
	case verify != nil:
		return func(r *http.Request, accessToken, _ string, params Params, profile *Profile) (any, Info, error) {
			return verify(r.Context(), accessToken, params, profile)
		}, nil
	}
	return defaultVerify, nil
}

func defaultVerify(_ *http.Request, accessToken, refreshToken string, params Params, profile *Profile) (any, Info, error) {
	if profile != nil {
		return profile, nil, nil
	}
	return &Token{AccessToken: accessToken, RefreshToken: refreshToken, Raw: params}, nil, nil
}

// noIdentity reports whether a verify callback returned no identity. A nil
// pointer, map, slice or func stored in the interface counts as none.
func noIdentity(identity any) bool {
	if identity == nil {
		return true
	}
	switch v := reflect.ValueOf(identity); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// rejected builds the error for a nil identity, keeping the message from
// info when the callback supplied one.
func rejected(info Info) error {
	e := &Error{Provider: ProviderName, Op: "verify", Err: ErrVerifyRejected}
	if msg, ok := info["message"].(string); ok {
		e.Description = msg
		e.Code = "rejected"
	}
	return e
}
