// Package oauth implements "Sign in with Slack" on top of Slack's OAuth v2
// endpoints.
//
// A sign-in attempt runs in a fixed order: the authorize redirect, the
// callback, the token exchange, the profile fetch (unless SkipUserProfile is
// set) and finally the verify callback supplied by the application.
//
// Slack answers oauth.v2.access with a bot token at the top level, a user
// token under authed_user, or both, depending on the scopes requested.
// ResolveToken wraps the base exchange so that a response with only a user
// token still signs the user in. The authed_user object travels with the
// returned Token and selects whose profile is fetched.
//
// # Quick Start
//
// Initialize the service from BEAVER_SLACK_OAUTH_* environment variables:
//
//	err := oauth.Init()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or build one directly:
//
//	svc, err := oauth.New(oauth.Config{
//	    ClientID:     "123.456",
//	    ClientSecret: os.Getenv("SLACK_CLIENT_SECRET"),
//	    CallbackURL:  "https://www.example.net/auth/slack/callback",
//	    UserScopes:   []string{"identity.basic", "identity.email"},
//	}, oauth.WithVerify(func(ctx context.Context, accessToken string, params oauth.Params, p *oauth.Profile) (any, oauth.Info, error) {
//	    return users.FindOrCreate(ctx, p.User.ID, p.TeamID())
//	}))
//
// # HTTP Handlers
//
// Handler provides Begin and Callback. Mount them on any router:
//
//	h := &oauth.Handler{
//	    Service: svc,
//	    OnSuccess: func(w http.ResponseWriter, r *http.Request, res *oauth.Result) {
//	        sessions.Login(w, r, res.Identity)
//	        http.Redirect(w, r, "/", http.StatusFound)
//	    },
//	}
//	mux.HandleFunc("/auth/slack", h.Begin)
//	mux.HandleFunc("/auth/slack/callback", h.Callback)
//
// Callback failures answer 401 unless OnFailure is set.
//
// # Verify Callbacks
//
// With PassRequestToCallback unset the callback is a VerifyFunc; with it set
// the callback is a VerifyRequestFunc and also receives the *http.Request.
// Supplying the other shape is a configuration error. A nil identity rejects
// the attempt with ErrVerifyRejected.
//
// # State
//
// The default "cache" state store keeps pending authorizations in a
// cache.Cache (memory or redis) and each state can be used once. The
// "signed" store keeps nothing server side; the state is an HS256 token that
// stays valid until it expires. It cannot be combined with PKCE.
//
// # Errors
//
// Every error returned by the token and profile steps is an *Error. Use
// errors.Is with the sentinels, such as ErrMissingAccessToken or
// ErrProfileProvider, and Error.Reason for Slack's own error code:
//
//	var oerr *oauth.Error
//	if errors.As(err, &oerr) && errors.Is(err, oauth.ErrProfileTransport) {
//	    log.Printf("profile fetch failed: %s", oerr.Reason())
//	}
package oauth
