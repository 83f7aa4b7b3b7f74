package oauth

import (
	"time"

	"golang.org/x/oauth2"
)

// ProviderName identifies this adapter in errors, sessions and metrics.
const ProviderName = "slack"

// Params is the decoded token endpoint response, every field included.
type Params map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Object returns the nested object at key, or nil.
func (p Params) Object(key string) Params {
	m, ok := p[key].(map[string]any)
	if !ok {
		return nil
	}
	return Params(m)
}

// Int64 returns the numeric value at key truncated to an integer.
func (p Params) Int64(key string) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Bool returns the boolean value at key.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// TeamRef names a workspace or enterprise grid organisation.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// AuthedUser is the authed_user object of a token response. It is the pending
// profile context: its ID selects the profile to fetch.
type AuthedUser struct {
	ID           string `json:"id"`
	Scope        string `json:"scope,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Raw          Params `json:"-"`
}

// Token represents the result of one token exchange or refresh.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	BotUserID    string    `json:"bot_user_id,omitempty"`
	AppID        string    `json:"app_id,omitempty"`
	Team         *TeamRef  `json:"team,omitempty"`
	Enterprise   *TeamRef  `json:"enterprise,omitempty"`

	// Promoted is set when AccessToken was taken from authed_user because the
	// top-level token was absent.
	Promoted bool `json:"promoted,omitempty"`

	// AuthedUser is populated whenever the response carried authed_user.
	AuthedUser *AuthedUser `json:"authed_user,omitempty"`

	// Raw holds the whole decoded response.
	Raw Params `json:"-"`
}

// IsExpired checks if the token is expired
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(t.ExpiresAt)
}

// TimeUntilExpiry returns the duration until the token expires
func (t *Token) TimeUntilExpiry() time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	return time.Until(t.ExpiresAt)
}

// OAuth2 converts t for use with golang.org/x/oauth2 token sources and
// transports. The raw response is available through Extra.
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.Raw != nil {
		return tok.WithExtra(map[string]any(t.Raw))
	}
	return tok
}

// Profile is a normalized profile response. It covers both the users.identity
// and users.info shapes; Raw keeps every field of the body.
type Profile struct {
	OK   bool           `json:"ok"`
	User ProfileUser    `json:"user"`
	Team ProfileTeam    `json:"team"`
	Raw  map[string]any `json:"-"`
}

// ProfileUser is the user object of users.identity or users.info.
type ProfileUser struct {
	ID       string `json:"id"`
	TeamID   string `json:"team_id,omitempty"`
	Name     string `json:"name,omitempty"`
	RealName string `json:"real_name,omitempty"`
	Email    string `json:"email,omitempty"`
	TZ       string `json:"tz,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
	Image24  string `json:"image_24,omitempty"`
	Image48  string `json:"image_48,omitempty"`
	Image72  string `json:"image_72,omitempty"`
	Image192 string `json:"image_192,omitempty"`
	Image512 string `json:"image_512,omitempty"`

	// Details is the nested profile object returned by users.info.
	Details *UserDetails `json:"profile,omitempty"`
}

// UserDetails is the nested profile object of users.info.
type UserDetails struct {
	DisplayName string `json:"display_name,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Title       string `json:"title,omitempty"`
	Image72     string `json:"image_72,omitempty"`
	Image192    string `json:"image_192,omitempty"`
	Image512    string `json:"image_512,omitempty"`
}

// ProfileTeam is the team object of users.identity.
type ProfileTeam struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Image88 string `json:"image_88,omitempty"`
}

// DisplayName picks the most specific name available in either response shape.
func (p *Profile) DisplayName() string {
	if d := p.User.Details; d != nil {
		if d.DisplayName != "" {
			return d.DisplayName
		}
		if d.RealName != "" {
			return d.RealName
		}
	}
	if p.User.RealName != "" {
		return p.User.RealName
	}
	return p.User.Name
}

// EmailAddress returns the email from either response shape.
func (p *Profile) EmailAddress() string {
	if p.User.Email != "" {
		return p.User.Email
	}
	if p.User.Details != nil {
		return p.User.Details.Email
	}
	return ""
}

// TeamID returns the workspace ID from either response shape.
func (p *Profile) TeamID() string {
	if p.Team.ID != "" {
		return p.Team.ID
	}
	return p.User.TeamID
}

// PKCEChallenge represents PKCE challenge parameters
type PKCEChallenge struct {
	Verifier        string `json:"verifier"`
	Challenge       string `json:"challenge"`
	ChallengeMethod string `json:"challenge_method"`
}

// AuthorizeOptions customises one authorization redirect. Nil slices fall
// back to the configured scopes.
type AuthorizeOptions struct {
	Scopes      []string
	UserScopes  []string
	Team        string
	ExtraParams map[string]string
	// Metadata is stored with the pending session and returned in Result.
	Metadata map[string]string
}

// SessionData represents the state of one pending authorization
type SessionData struct {
	State         string            `json:"state"`
	PKCEChallenge *PKCEChallenge    `json:"pkce_challenge,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	Provider      string            `json:"provider"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsExpired checks if the session data is expired
func (s *SessionData) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Info carries optional details from the verify callback, such as a message
// explaining a rejection.
type Info map[string]any

// Result is the outcome of a successful callback.
type Result struct {
	AttemptID string
	Identity  any
	Info      Info
	Token     *Token
	// Profile is nil when SkipUserProfile is set.
	Profile  *Profile
	Metadata map[string]string
}
