package oauth_test

import (
	"testing"
	"time"

	"github.com/gobeaver/slack-auth/oauth"
	"github.com/gobeaver/slack-auth/oauth/slacktest"
	"github.com/gobeaver/slack-auth/slack"
)

func testConfig(srv *slacktest.Server) oauth.Config {
	return oauth.Config{
		ClientID:         slacktest.ClientID,
		ClientSecret:     slacktest.ClientSecret,
		CallbackURL:      "https://www.example.net/auth/slack/callback",
		AuthorizationURL: srv.AuthorizeURL(),
		TokenURL:         srv.TokenURL(),
		ProfileURL:       srv.ProfileURL(),
		RevokeURL:        srv.RevokeURL(),
		UserScopes:       []string{"identity.basic", "identity.email"},
	}
}

// testAPI returns a client without rate limiting or circuit breaking so
// tests are not slowed or tripped by them.
func testAPI(t *testing.T, srv *slacktest.Server) *slack.Client {
	t.Helper()
	api, err := slack.New(slack.Config{
		BaseURL:         srv.URL() + "/api/",
		Timeout:         5 * time.Second,
		MaxResponseSize: 1 << 20,
		EnableMetrics:   true,
	})
	if err != nil {
		t.Fatalf("slack.New() error = %v", err)
	}
	return api
}

func newTestService(t *testing.T, srv *slacktest.Server, mutate func(*oauth.Config), opts ...oauth.Option) *oauth.Service {
	t.Helper()
	cfg := testConfig(srv)
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]oauth.Option{oauth.WithAPIClient(testAPI(t, srv))}, opts...)
	svc, err := oauth.New(cfg, opts...)
	if err != nil {
		t.Fatalf("oauth.New() error = %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func newTestProvider(t *testing.T, srv *slacktest.Server) *oauth.SlackProvider {
	t.Helper()
	p, err := oauth.NewSlackProvider(testConfig(srv), testAPI(t, srv))
	if err != nil {
		t.Fatalf("NewSlackProvider() error = %v", err)
	}
	return p
}

func newServer(t *testing.T) *slacktest.Server {
	t.Helper()
	srv := slacktest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}
