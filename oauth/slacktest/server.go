// Package slacktest provides an in-process Slack OAuth v2 server for tests.
//
// It serves the authorize page, oauth.v2.access, the profile method and
// auth.revoke. Codes and refresh tokens are single use, as they are on Slack.
package slacktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/gobeaver/slack-auth/krypto"
)

// Default credentials accepted by the server
const (
	ClientID     = "123.456"
	ClientSecret = "shhh-its-a-secret"
)

// Config configures the mock server
type Config struct {
	ClientID     string
	ClientSecret string
	// Latency delays every response
	Latency time.Duration
}

// Request is a recorded call to the server
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Form          url.Values
	Authorization string
}

// Reply is a canned profile response
type Reply struct {
	Status int
	Body   string
	// Token, when set, is the only bearer token accepted for this reply
	Token string
}

type grant struct {
	response      map[string]any
	codeChallenge string
	redirectURI   string
}

// Server is a mock Slack OAuth server
type Server struct {
	server *httptest.Server
	config Config

	mu        sync.Mutex
	codes     map[string]*grant
	refresh   map[string]map[string]any
	profiles  map[string]Reply
	revoked   map[string]time.Time
	requests  []Request
	authorize map[string]any
	deny      bool
}

// NewServer starts a server. Close it when done.
func NewServer(configs ...Config) *Server {
	cfg := Config{ClientID: ClientID, ClientSecret: ClientSecret}
	if len(configs) > 0 {
		cfg = configs[0]
	}

	s := &Server{
		config:   cfg,
		codes:    make(map[string]*grant),
		refresh:  make(map[string]map[string]any),
		profiles: make(map[string]Reply),
		revoked:  make(map[string]time.Time),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/authorize", s.handleAuthorize)
	mux.HandleFunc("/api/oauth.v2.access", s.handleToken)
	mux.HandleFunc("/api/users.identity", s.handleProfile)
	mux.HandleFunc("/api/users.info", s.handleProfile)
	mux.HandleFunc("/api/auth.revoke", s.handleRevoke)
	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the base URL
func (s *Server) URL() string { return s.server.URL }

// AuthorizeURL returns the authorize page URL
func (s *Server) AuthorizeURL() string { return s.server.URL + "/oauth/v2/authorize" }

// TokenURL returns the oauth.v2.access URL
func (s *Server) TokenURL() string { return s.server.URL + "/api/oauth.v2.access" }

// ProfileURL returns the users.identity URL
func (s *Server) ProfileURL() string { return s.server.URL + "/api/users.identity" }

// UsersInfoURL returns the users.info URL
func (s *Server) UsersInfoURL() string { return s.server.URL + "/api/users.info" }

// RevokeURL returns the auth.revoke URL
func (s *Server) RevokeURL() string { return s.server.URL + "/api/auth.revoke" }

// Client returns an HTTP client for the server
func (s *Server) Client() *http.Client { return s.server.Client() }

// Close shuts down the server
func (s *Server) Close() { s.server.Close() }

// AddCode registers code; exchanging it returns response as the body.
// "ok": true is added when response has no "ok" field.
func (s *Server) AddCode(code string, response map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = &grant{response: withOK(response)}
}

// AddUserCode registers code for a response that carries only a user token,
// the shape Slack returns when nothing but user scopes were requested.
func (s *Server) AddUserCode(code, userID, userToken string) {
	s.AddCode(code, UserTokenResponse(userID, userToken))
}

// AddRefreshToken registers a refresh token; using it returns response.
func (s *Server) AddRefreshToken(refreshToken string, response map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[refreshToken] = withOK(response)
}

// SetAuthorizeResponse sets the token response for codes issued by the
// authorize page.
func (s *Server) SetAuthorizeResponse(response map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorize = withOK(response)
}

// SetDeny makes the authorize page redirect back with error=access_denied.
func (s *Server) SetDeny(deny bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deny = deny
}

// SetProfile sets the profile reply for userID
func (s *Server) SetProfile(userID string, reply Reply) {
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = reply
}

// AddIdentity sets a users.identity style profile for userID, served only
// to bearer token.
func (s *Server) AddIdentity(userID, token, name, email, teamID string) {
	body, _ := json.Marshal(map[string]any{
		"ok": true,
		"user": map[string]any{
			"id":        userID,
			"name":      name,
			"email":     email,
			"image_48":  "https://avatars.example/" + userID + "_48.png",
			"image_192": "https://avatars.example/" + userID + "_192.png",
		},
		"team": map[string]any{
			"id":     teamID,
			"name":   "Example Workspace",
			"domain": "example",
		},
	})
	s.SetProfile(userID, Reply{Body: string(body), Token: token})
}

// Requests returns the recorded requests for path, or all when path is empty.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Revoked reports whether token was revoked
func (s *Server) Revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok
}

// UserTokenResponse is an oauth.v2.access body with an empty top-level
// token and a user token under authed_user.
func UserTokenResponse(userID, userToken string) map[string]any {
	return map[string]any{
		"ok":     true,
		"app_id": "A0KRD7HC3",
		"authed_user": map[string]any{
			"id":           userID,
			"scope":        "identity.basic,identity.email",
			"access_token": userToken,
			"token_type":   "user",
		},
		"team":       map[string]any{"id": "T9TK3CUKW", "name": "Example Workspace"},
		"enterprise": nil,
	}
}

// BotTokenResponse is an oauth.v2.access body with a bot token and an
// authed_user carrying only the user ID.
func BotTokenResponse(userID, botToken string) map[string]any {
	return map[string]any{
		"ok":           true,
		"access_token": botToken,
		"token_type":   "bot",
		"scope":        "commands,chat:write",
		"bot_user_id":  "U0KRQLJ9H",
		"app_id":       "A0KRD7HC3",
		"team":         map[string]any{"id": "T9TK3CUKW", "name": "Example Workspace"},
		"authed_user":  map[string]any{"id": userID},
	}
}

func (s *Server) record(r *http.Request) {
	_ = r.ParseForm()
	req := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	}
	if r.Method == http.MethodPost {
		req.Form = r.PostForm
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	latency := s.config.Latency
	s.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	q := r.URL.Query()

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirect.Scheme == "" || q.Get("client_id") != s.config.ClientID {
		http.Error(w, "bad_redirect_uri", http.StatusBadRequest)
		return
	}
	back := redirect.Query()
	back.Set("state", q.Get("state"))

	s.mu.Lock()
	switch {
	case s.deny:
		back.Set("error", "access_denied")
	case s.authorize == nil:
		s.mu.Unlock()
		http.Error(w, "no authorize response configured", http.StatusInternalServerError)
		return
	default:
		code, err := krypto.GenerateSecureToken(16)
		if err != nil {
			s.mu.Unlock()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.codes[code] = &grant{
			response:      s.authorize,
			codeChallenge: q.Get("code_challenge"),
			redirectURI:   q.Get("redirect_uri"),
		}
		back.Set("code", code)
	}
	s.mu.Unlock()

	redirect.RawQuery = back.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, slackError("method_not_allowed"))
		return
	}

	switch {
	case r.PostForm.Get("client_id") != s.config.ClientID:
		writeJSON(w, http.StatusOK, slackError("invalid_client_id"))
		return
	case r.PostForm.Get("client_secret") != s.config.ClientSecret:
		writeJSON(w, http.StatusOK, slackError("bad_client_secret"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.PostForm.Get("grant_type") == "refresh_token" {
		rt := r.PostForm.Get("refresh_token")
		resp, ok := s.refresh[rt]
		if !ok {
			writeJSON(w, http.StatusOK, slackError("invalid_refresh_token"))
			return
		}
		delete(s.refresh, rt)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	code := r.PostForm.Get("code")
	g, ok := s.codes[code]
	if !ok {
		writeJSON(w, http.StatusOK, slackError("invalid_code"))
		return
	}
	delete(s.codes, code)

	if g.redirectURI != "" && g.redirectURI != r.PostForm.Get("redirect_uri") {
		writeJSON(w, http.StatusOK, slackError("bad_redirect_uri"))
		return
	}
	if g.codeChallenge != "" {
		verifier := r.PostForm.Get("code_verifier")
		if verifier == "" || oauth2.S256ChallengeFromVerifier(verifier) != g.codeChallenge {
			writeJSON(w, http.StatusOK, slackError("invalid_code_verifier"))
			return
		}
	}
	writeJSON(w, http.StatusOK, g.response)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	token, ok := bearer(r)
	if !ok {
		writeJSON(w, http.StatusOK, slackError("not_authed"))
		return
	}

	s.mu.Lock()
	reply, found := s.profiles[r.URL.Query().Get("user")]
	_, revoked := s.revoked[token]
	s.mu.Unlock()

	switch {
	case revoked:
		writeJSON(w, http.StatusOK, slackError("token_revoked"))
	case !found:
		writeJSON(w, http.StatusOK, slackError("user_not_found"))
	case reply.Token != "" && reply.Token != token:
		writeJSON(w, http.StatusOK, slackError("invalid_auth"))
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		_, _ = w.Write([]byte(reply.Body))
	}
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	token, ok := bearer(r)
	if !ok {
		token = r.PostForm.Get("token")
	}
	if token == "" {
		writeJSON(w, http.StatusOK, slackError("not_authed"))
		return
	}

	s.mu.Lock()
	s.revoked[token] = time.Now()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "revoked": true})
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	tok := strings.TrimPrefix(auth, "Bearer ")
	return tok, tok != ""
}

func withOK(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if _, ok := out["ok"]; !ok {
		out["ok"] = true
	}
	return out
}

func slackError(code string) map[string]any {
	return map[string]any{"ok": false, "error": code}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
