package slack

import (
	"net/url"
	"regexp"
)

var sensitiveJSON = regexp.MustCompile(`"(access_token|refresh_token|token|client_secret|code_verifier|id_token)"\s*:\s*"[^"]*"`)

var sensitiveParams = []string{"token", "access_token", "refresh_token", "client_secret", "code", "code_verifier"}

// RedactBody masks token-like string fields in a JSON document.
func RedactBody(s string) string {
	return sensitiveJSON.ReplaceAllString(s, `"$1":"REDACTED"`)
}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}
