// Package slack provides a small client for the Slack Web API.
//
// The client covers what the OAuth flow needs from Slack after a token has been
// issued: authenticated GET calls such as users.identity or users.info, and form
// POST calls such as auth.revoke. It does not model individual API methods;
// callers decode the response body themselves and use ParseEnvelope for the
// common ok/error fields.
//
// # Configuration
//
// Settings load from environment variables prefixed with BEAVER_SLACK_:
//
//	BEAVER_SLACK_API_BASE_URL=https://slack.com/api/
//	BEAVER_SLACK_TIMEOUT=10s
//	BEAVER_SLACK_RATE_LIMIT=20
//	BEAVER_SLACK_RATE_BURST=20
//	BEAVER_SLACK_CIRCUIT_THRESHOLD=5
//	BEAVER_SLACK_CIRCUIT_TIMEOUT=60s
//
// # Usage
//
//	cfg, err := slack.GetConfig()
//	if err != nil {
//	    return err
//	}
//	client, err := slack.New(*cfg, slack.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Get(ctx, "users.identity", nil, accessToken)
//
// Bearer tokens are attached through golang.org/x/oauth2 transports. Outbound
// calls pass a token bucket limiter and a circuit breaker; non-2xx responses
// return *HTTPError together with the response so the body remains available.
//
// Every call opens an OpenTelemetry client span. Without a configured tracer
// provider the spans are no-ops.
package slack
