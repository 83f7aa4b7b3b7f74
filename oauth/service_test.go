package oauth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/slack-auth/oauth"
	"github.com/gobeaver/slack-auth/oauth/slacktest"
)

// authorize follows the authorize URL as the browser would and returns the
// callback request Slack redirects to.
func authorize(t *testing.T, srv *slacktest.Server, authURL string) *http.Request {
	t.Helper()
	client := *srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	return httptest.NewRequest(http.MethodGet, resp.Header.Get("Location"), nil)
}

func callback(code, state string) *http.Request {
	q := url.Values{"code": {code}, "state": {state}}
	return httptest.NewRequest(http.MethodGet, "https://www.example.net/auth/slack/callback?"+q.Encode(), nil)
}

func TestAuthenticateUserTokenFlow(t *testing.T) {
	srv := newServer(t)
	srv.SetAuthorizeResponse(slacktest.UserTokenResponse("U123", "xoxp-user"))
	srv.AddIdentity("U123", "xoxp-user", "Jane", "jane@example.net", "T9TK3CUKW")

	var gotToken string
	var gotParams oauth.Params
	svc := newTestService(t, srv, nil, oauth.WithVerify(
		func(_ context.Context, accessToken string, params oauth.Params, profile *oauth.Profile) (any, oauth.Info, error) {
			gotToken, gotParams = accessToken, params
			return profile.User.ID, oauth.Info{"email": profile.EmailAddress()}, nil
		}))

	ctx := context.Background()
	authURL, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{Metadata: map[string]string{"return_to": "/home"}})
	require.NoError(t, err)
	require.NotEmpty(t, state)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, slacktest.ClientID, u.Query().Get("client_id"))
	assert.Equal(t, "identity.basic,identity.email", u.Query().Get("user_scope"))
	assert.Equal(t, state, u.Query().Get("state"))
	assert.Empty(t, u.Query().Get("scope"))

	res, err := svc.Authenticate(authorize(t, srv, authURL))
	require.NoError(t, err)
	assert.Equal(t, "U123", res.Identity)
	assert.Equal(t, oauth.Info{"email": "jane@example.net"}, res.Info)
	assert.Equal(t, "/home", res.Metadata["return_to"])
	assert.NotEmpty(t, res.AttemptID)
	assert.True(t, res.Token.Promoted)
	assert.Equal(t, "xoxp-user", gotToken)
	assert.Equal(t, "U123", gotParams.Object("authed_user").String("id"))

	m := svc.Metrics()
	assert.EqualValues(t, 1, m.AuthRequests.Success)
	assert.EqualValues(t, 1, m.TokenExchanges.Success)
	assert.EqualValues(t, 1, m.ProfileFetches.Success)
	assert.EqualValues(t, 1, m.TokenPromotions)
	assert.EqualValues(t, 2, m.API.Requests)
}

func TestAuthenticateBotTokenFlow(t *testing.T) {
	srv := newServer(t)
	resp := slacktest.BotTokenResponse("U123", "xoxb-bot")
	resp["authed_user"] = map[string]any{"id": "U123", "access_token": "xoxp-user", "token_type": "user"}
	srv.SetAuthorizeResponse(resp)
	srv.AddIdentity("U123", "xoxp-user", "Jane", "jane@example.net", "T9TK3CUKW")

	svc := newTestService(t, srv, func(c *oauth.Config) { c.Scopes = []string{"commands", "chat:write"} })

	authURL, _, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	assert.Equal(t, "commands,chat:write", u.Query().Get("scope"))

	res, err := svc.Authenticate(authorize(t, srv, authURL))
	require.NoError(t, err)
	assert.Equal(t, "xoxb-bot", res.Token.AccessToken)
	assert.False(t, res.Token.Promoted)

	// default verify hands back the profile
	profile, ok := res.Identity.(*oauth.Profile)
	require.True(t, ok)
	assert.Equal(t, "U123", profile.User.ID)
	assert.Equal(t, "Bearer xoxp-user", srv.Requests("/api/users.identity")[0].Authorization)
}

func TestAuthenticateAccessDenied(t *testing.T) {
	srv := newServer(t)
	srv.SetDeny(true)
	svc := newTestService(t, srv, nil)

	authURL, _, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
	require.NoError(t, err)

	_, err = svc.Authenticate(authorize(t, srv, authURL))
	assert.ErrorIs(t, err, oauth.ErrAccessDenied)
	var oerr *oauth.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "callback", oerr.Op)
	assert.Empty(t, srv.Requests("/api/oauth.v2.access"))
}

func TestAuthenticateStateErrors(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil)
	ctx := context.Background()

	t.Run("missing code", func(t *testing.T) {
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)
		_, err = svc.Authenticate(callback("", state))
		assert.ErrorIs(t, err, oauth.ErrMissingCode)
	})

	t.Run("unknown state", func(t *testing.T) {
		srv.AddUserCode("c1", "U123", "xoxp-1")
		_, err := svc.Authenticate(callback("c1", "forged"))
		assert.ErrorIs(t, err, oauth.ErrInvalidState)
		assert.ErrorIs(t, err, oauth.ErrSessionNotFound)
	})

	t.Run("missing state", func(t *testing.T) {
		_, err := svc.Authenticate(callback("c1", ""))
		assert.ErrorIs(t, err, oauth.ErrInvalidState)
	})

	t.Run("state used once", func(t *testing.T) {
		srv.AddUserCode("c2", "U123", "xoxp-2")
		srv.AddIdentity("U123", "xoxp-2", "Jane", "", "T1")
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)

		_, err = svc.Authenticate(callback("c2", state))
		require.NoError(t, err)

		_, err = svc.Authenticate(callback("c2", state))
		assert.ErrorIs(t, err, oauth.ErrInvalidState)
	})

	errs := svc.Metrics().Errors
	assert.Positive(t, errs["callback_invalid_state"])
}

func TestAuthenticateExchangeFailures(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil)
	ctx := context.Background()

	t.Run("no token anywhere", func(t *testing.T) {
		srv.AddCode("c-none", map[string]any{"authed_user": map[string]any{"id": "U123"}})
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)

		_, err = svc.Authenticate(callback("c-none", state))
		assert.ErrorIs(t, err, oauth.ErrMissingAccessToken)
		assert.Empty(t, srv.Requests("/api/users.identity"))
	})

	t.Run("invalid code", func(t *testing.T) {
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)

		_, err = svc.Authenticate(callback("never-issued", state))
		assert.ErrorIs(t, err, oauth.ErrInvalidCode)
	})

	t.Run("profile rejected", func(t *testing.T) {
		srv.AddUserCode("c-prof", "U404", "xoxp-404")
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)

		_, err = svc.Authenticate(callback("c-prof", state))
		assert.ErrorIs(t, err, oauth.ErrProfileProvider)
		var oerr *oauth.Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, "user_not_found", oerr.Reason())
	})
}

func TestAuthenticateSkipUserProfile(t *testing.T) {
	srv := newServer(t)
	srv.AddUserCode("c1", "U123", "xoxp-user")

	var gotProfile *oauth.Profile
	called := false
	svc := newTestService(t, srv, func(c *oauth.Config) { c.SkipUserProfile = true },
		oauth.WithVerify(func(_ context.Context, accessToken string, _ oauth.Params, profile *oauth.Profile) (any, oauth.Info, error) {
			called = true
			gotProfile = profile
			return accessToken, nil, nil
		}))

	_, state, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
	require.NoError(t, err)

	res, err := svc.Authenticate(callback("c1", state))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, gotProfile)
	assert.Nil(t, res.Profile)
	assert.Equal(t, "xoxp-user", res.Identity)
	assert.Empty(t, srv.Requests("/api/users.identity"))
}

func TestAuthenticateVerifyOutcomes(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	run := func(t *testing.T, svc *oauth.Service, code string) (*oauth.Result, error) {
		t.Helper()
		srv.AddUserCode(code, "U123", "xoxp-"+code)
		srv.AddIdentity("U123", "xoxp-"+code, "Jane", "", "T1")
		_, state, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
		require.NoError(t, err)
		return svc.Authenticate(callback(code, state))
	}

	t.Run("rejected with message", func(t *testing.T) {
		svc := newTestService(t, srv, nil, oauth.WithVerify(
			func(context.Context, string, oauth.Params, *oauth.Profile) (any, oauth.Info, error) {
				return nil, oauth.Info{"message": "workspace not allowed"}, nil
			}))
		_, err := run(t, svc, "v1")
		assert.ErrorIs(t, err, oauth.ErrVerifyRejected)
		var oerr *oauth.Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, "workspace not allowed", oerr.Description)
		assert.Equal(t, "verify", oerr.Op)
	})

	t.Run("typed nil identity is rejected", func(t *testing.T) {
		type user struct{ ID string }
		svc := newTestService(t, srv, nil, oauth.WithVerify(
			func(context.Context, string, oauth.Params, *oauth.Profile) (any, oauth.Info, error) {
				var u *user
				return u, nil, nil
			}))
		res, err := run(t, svc, "v4")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, oauth.ErrVerifyRejected)
	})

	t.Run("callback error", func(t *testing.T) {
		boom := errors.New("database down")
		svc := newTestService(t, srv, nil, oauth.WithVerify(
			func(context.Context, string, oauth.Params, *oauth.Profile) (any, oauth.Info, error) {
				return nil, nil, boom
			}))
		_, err := run(t, svc, "v2")
		assert.ErrorIs(t, err, boom)
		var oerr *oauth.Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, "verify", oerr.Op)
	})

	t.Run("request shape", func(t *testing.T) {
		var gotPath string
		svc := newTestService(t, srv, func(c *oauth.Config) { c.PassRequestToCallback = true },
			oauth.WithVerifyRequest(func(r *http.Request, _ string, _ oauth.Params, profile *oauth.Profile) (any, oauth.Info, error) {
				gotPath = r.URL.Path
				return profile.User.ID, nil, nil
			}))
		res, err := run(t, svc, "v3")
		require.NoError(t, err)
		assert.Equal(t, "/auth/slack/callback", gotPath)
		assert.Equal(t, "U123", res.Identity)
	})
}

func TestNewVerifyShapeMismatch(t *testing.T) {
	srv := newServer(t)
	verify := func(context.Context, string, oauth.Params, *oauth.Profile) (any, oauth.Info, error) {
		return "x", nil, nil
	}
	verifyReq := func(*http.Request, string, oauth.Params, *oauth.Profile) (any, oauth.Info, error) {
		return "x", nil, nil
	}

	cfg := testConfig(srv)
	cfg.PassRequestToCallback = true
	_, err := oauth.New(cfg, oauth.WithVerify(verify))
	assert.ErrorIs(t, err, oauth.ErrInvalidConfig)

	cfg.PassRequestToCallback = false
	_, err = oauth.New(cfg, oauth.WithVerifyRequest(verifyReq))
	assert.ErrorIs(t, err, oauth.ErrInvalidConfig)
}

func TestAuthenticatePKCE(t *testing.T) {
	srv := newServer(t)
	srv.SetAuthorizeResponse(slacktest.UserTokenResponse("U123", "xoxp-user"))
	srv.AddIdentity("U123", "xoxp-user", "Jane", "", "T1")
	svc := newTestService(t, srv, func(c *oauth.Config) { c.PKCEEnabled = true })

	authURL, _, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	assert.Equal(t, oauth.PKCEMethodS256, u.Query().Get("code_challenge_method"))
	assert.NotEmpty(t, u.Query().Get("code_challenge"))

	_, err = svc.Authenticate(authorize(t, srv, authURL))
	require.NoError(t, err)

	form := srv.Requests("/api/oauth.v2.access")[0].Form
	assert.NotEmpty(t, form.Get("code_verifier"))
}

func TestAuthenticateSignedState(t *testing.T) {
	srv := newServer(t)
	srv.SetAuthorizeResponse(slacktest.UserTokenResponse("U123", "xoxp-user"))
	srv.AddIdentity("U123", "xoxp-user", "Jane", "", "T1")
	svc := newTestService(t, srv, func(c *oauth.Config) {
		c.StateStore = "signed"
		c.StateSigningKey = "0123456789abcdef0123456789abcdef"
	})

	authURL, _, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{Metadata: map[string]string{"k": "v"}})
	require.NoError(t, err)

	res, err := svc.Authenticate(authorize(t, srv, authURL))
	require.NoError(t, err)
	assert.Equal(t, "v", res.Metadata["k"])
}

func TestAuthenticateConcurrentAttemptsAreIsolated(t *testing.T) {
	srv := slacktest.NewServer(slacktest.Config{
		ClientID:     slacktest.ClientID,
		ClientSecret: slacktest.ClientSecret,
		Latency:      5 * time.Millisecond,
	})
	t.Cleanup(srv.Close)

	svc := newTestService(t, srv, nil, oauth.WithVerify(
		func(_ context.Context, accessToken string, params oauth.Params, profile *oauth.Profile) (any, oauth.Info, error) {
			return fmt.Sprintf("%s|%s|%s", profile.User.ID, accessToken, params.Object("authed_user").String("id")), nil, nil
		}))

	const n = 10
	states := make([]string, n)
	for i := 0; i < n; i++ {
		user := fmt.Sprintf("U%03d", i)
		token := fmt.Sprintf("xoxp-%03d", i)
		srv.AddUserCode("code-"+user, user, token)
		srv.AddIdentity(user, token, user, "", "T1")

		_, state, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
		require.NoError(t, err)
		states[i] = state
	}

	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Authenticate(callback(fmt.Sprintf("code-U%03d", i), states[i]))
			errs[i] = err
			if res != nil {
				results[i] = res.Identity
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		want := fmt.Sprintf("U%03d|xoxp-%03d|U%03d", i, i, i)
		assert.Equal(t, want, results[i])
	}
}

func TestRefreshToken(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil)
	ctx := context.Background()

	srv.AddRefreshToken("xoxe-1", map[string]any{
		"authed_user": map[string]any{
			"id":            "U123",
			"access_token":  "xoxp-new",
			"refresh_token": "xoxe-2",
			"token_type":    "user",
			"expires_in":    float64(43200),
		},
	})

	tok, err := svc.RefreshToken(ctx, "xoxe-1")
	require.NoError(t, err)
	assert.Equal(t, "xoxp-new", tok.AccessToken)
	assert.Equal(t, "xoxe-2", tok.RefreshToken)
	assert.False(t, tok.IsExpired())
	assert.Positive(t, tok.TimeUntilExpiry())

	form := srv.Requests("/api/oauth.v2.access")[0].Form
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "xoxe-1", form.Get("refresh_token"))

	_, err = svc.RefreshToken(ctx, "xoxe-1")
	assert.ErrorIs(t, err, oauth.ErrInvalidRefreshToken)
	var oerr *oauth.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "refresh", oerr.Op)

	_, err = svc.RefreshToken(ctx, "")
	assert.ErrorIs(t, err, oauth.ErrNoRefreshToken)

	assert.EqualValues(t, 1, svc.Metrics().TokenRefreshes.Success)
}

func TestRevokeToken(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil)
	ctx := context.Background()

	require.NoError(t, svc.RevokeToken(ctx, "xoxp-user"))
	assert.True(t, srv.Revoked("xoxp-user"))
	assert.Equal(t, "Bearer xoxp-user", srv.Requests("/api/auth.revoke")[0].Authorization)

	assert.ErrorIs(t, svc.RevokeToken(ctx, ""), oauth.ErrInvalidConfig)

	// a revoked token can no longer fetch the profile
	srv.AddIdentity("U123", "xoxp-user", "Jane", "", "T1")
	_, err := svc.FetchProfile(ctx, &oauth.Token{AccessToken: "xoxp-user", AuthedUser: &oauth.AuthedUser{ID: "U123"}})
	var oerr *oauth.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "token_revoked", oerr.Reason())
}

func TestNewInvalidConfig(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name   string
		mutate func(*oauth.Config)
	}{
		{"missing client id", func(c *oauth.Config) { c.ClientID = "" }},
		{"missing secret", func(c *oauth.Config) { c.ClientSecret = "" }},
		{"missing callback", func(c *oauth.Config) { c.CallbackURL = "" }},
		{"relative callback", func(c *oauth.Config) { c.CallbackURL = "/auth/slack/callback" }},
		{"relative profile url", func(c *oauth.Config) { c.ProfileURL = "users.identity" }},
		{"unknown generator", func(c *oauth.Config) { c.StateGenerator = "counter" }},
		{"unknown store", func(c *oauth.Config) { c.StateStore = "cookie" }},
		{"weak signing key", func(c *oauth.Config) { c.StateStore = "signed"; c.StateSigningKey = "short" }},
		{"signed with pkce", func(c *oauth.Config) {
			c.StateStore = "signed"
			c.StateSigningKey = "0123456789abcdef0123456789abcdef"
			c.PKCEEnabled = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(srv)
			tt.mutate(&cfg)
			_, err := oauth.New(cfg)
			assert.ErrorIs(t, err, oauth.ErrInvalidConfig)
		})
	}
}

func TestNilService(t *testing.T) {
	var svc *oauth.Service
	ctx := context.Background()

	_, _, err := svc.GetAuthURL(ctx, oauth.AuthorizeOptions{})
	assert.ErrorIs(t, err, oauth.ErrNotInitialized)
	_, err = svc.Authenticate(callback("c", "s"))
	assert.ErrorIs(t, err, oauth.ErrNotInitialized)
	_, err = svc.Exchange(ctx, "c", "s")
	assert.ErrorIs(t, err, oauth.ErrNotInitialized)
	assert.ErrorIs(t, svc.RevokeToken(ctx, "t"), oauth.ErrNotInitialized)
	assert.Nil(t, svc.Metrics())
	assert.NoError(t, svc.Close())
}

func TestGlobalService(t *testing.T) {
	oauth.Reset()
	t.Cleanup(oauth.Reset)

	srv := newServer(t)
	t.Setenv("BEAVER_SLACK_OAUTH_CLIENT_ID", slacktest.ClientID)
	t.Setenv("BEAVER_SLACK_OAUTH_CLIENT_SECRET", slacktest.ClientSecret)
	t.Setenv("BEAVER_SLACK_OAUTH_CALLBACK_URL", "https://www.example.net/auth/slack/callback")
	t.Setenv("BEAVER_SLACK_OAUTH_AUTHORIZATION_URL", srv.AuthorizeURL())
	t.Setenv("BEAVER_SLACK_OAUTH_TOKEN_URL", srv.TokenURL())
	t.Setenv("BEAVER_SLACK_OAUTH_PROFILE_URL", srv.ProfileURL())
	t.Setenv("BEAVER_SLACK_OAUTH_STATE_GENERATOR", "uuid")
	t.Setenv("BEAVER_CACHE_DRIVER", "memory")

	require.NoError(t, oauth.Init())
	svc := oauth.GetService()
	require.NotNil(t, svc)
	assert.Same(t, svc, oauth.OAuth())
	assert.Equal(t, "uuid", svc.Config().StateGenerator)
	assert.Equal(t, "slack", svc.Provider().Name())

	srv.AddUserCode("c1", "U123", "xoxp-1")
	srv.AddIdentity("U123", "xoxp-1", "Jane", "", "T1")
	_, state, err := svc.GetAuthURL(context.Background(), oauth.AuthorizeOptions{})
	require.NoError(t, err)
	assert.Len(t, state, 36)

	_, err = svc.Authenticate(callback("c1", state))
	require.NoError(t, err)
}

func TestGlobalServiceWithPrefix(t *testing.T) {
	oauth.Reset()
	t.Cleanup(oauth.Reset)

	t.Setenv("SIGNIN_CLIENT_ID", "1.2")
	t.Setenv("SIGNIN_CLIENT_SECRET", "s")
	t.Setenv("SIGNIN_CALLBACK_URL", "https://app.example/cb")

	require.NoError(t, oauth.WithPrefix("SIGNIN_").Init())
	assert.Equal(t, "1.2", oauth.GetService().Config().ClientID)

	svc, err := oauth.WithPrefix("SIGNIN_").New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	assert.NotSame(t, oauth.GetService(), svc)
}

// nilMetrics is a collector whose snapshots are always nil.
type nilMetrics struct{ *oauth.DefaultMetricsCollector }

func (nilMetrics) GetMetrics() *oauth.Metrics { return nil }

func TestServiceMetricsNilSnapshot(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil, oauth.WithMetrics(nilMetrics{oauth.NewDefaultMetricsCollector()}))

	m := svc.Metrics()
	require.NotNil(t, m)
	assert.Zero(t, m.TokenExchanges.Total)

	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	require.NotNil(t, health.Metrics)
	assert.Zero(t, health.Metrics.ErrorRate)
}

func TestServiceHealth(t *testing.T) {
	srv := newServer(t)
	svc := newTestService(t, srv, nil)

	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oauth.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "state_store")
	assert.Contains(t, health.Checks, "slack_api")

	checker := oauth.NewHealthChecker(svc, "1.0.0")
	checker.RegisterCheck("db", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	oauth.HealthHandler(checker)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)

	result, err := checker.CheckComponent(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "down", result.Error)

	_, err = checker.CheckComponent(context.Background(), "nope")
	assert.Error(t, err)
}
