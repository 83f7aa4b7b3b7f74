package oauth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gobeaver/slack-auth/slack"
)

func TestDefaultMetricsCollector(t *testing.T) {
	c := NewDefaultMetricsCollector()

	c.RecordAuthRequest(true, 10*time.Millisecond)
	c.RecordAuthRequest(false, 30*time.Millisecond)
	c.RecordTokenExchange(true, 5*time.Millisecond)
	c.RecordTokenPromotion()
	c.RecordProfileFetch(false, time.Millisecond)
	c.RecordRevoke(true, time.Millisecond)
	c.RecordRateLimitHit("ip:192.0.2.1")
	c.RecordError("callback", "invalid_state")
	c.RecordError("callback", "invalid_state")

	m := c.GetMetrics()
	assert.Equal(t, MetricCounter{Total: 2, Success: 1, Failed: 1}, m.AuthRequests)
	assert.EqualValues(t, 1, m.TokenExchanges.Success)
	assert.EqualValues(t, 1, m.TokenPromotions)
	assert.EqualValues(t, 1, m.ProfileFetches.Failed)
	assert.EqualValues(t, 1, m.Revocations.Total)
	assert.EqualValues(t, 1, m.RateLimitHits)
	assert.EqualValues(t, 2, m.Errors["callback_invalid_state"])
	assert.Equal(t, 20*time.Millisecond, m.ResponseTimes["auth_request"].Average)

	// snapshots are independent of later updates
	m.Errors["callback_invalid_state"] = 100
	assert.EqualValues(t, 2, c.GetMetrics().Errors["callback_invalid_state"])

	start := m.StartTime
	c.Reset()
	m = c.GetMetrics()
	assert.Zero(t, m.AuthRequests.Total)
	assert.Empty(t, m.Errors)
	assert.Equal(t, start, m.StartTime)
	assert.False(t, m.LastResetTime.Before(start))
}

func TestDurationSamplesCapped(t *testing.T) {
	c := NewDefaultMetricsCollector()
	for i := 0; i < maxDurationSamples+50; i++ {
		c.RecordTokenExchange(true, time.Duration(i)*time.Microsecond)
	}
	rt := c.GetMetrics().ResponseTimes["token_exchange"]
	assert.EqualValues(t, maxDurationSamples, rt.Count)
	assert.Equal(t, 50*time.Microsecond, rt.Min)
}

func TestCalculateResponseTimeStats(t *testing.T) {
	assert.Equal(t, ResponseTime{}, calculateResponseTimeStats(nil))

	durations := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}
	rt := calculateResponseTimeStats(durations)
	assert.Equal(t, time.Millisecond, rt.Min)
	assert.Equal(t, 100*time.Millisecond, rt.Max)
	assert.Equal(t, 51*time.Millisecond, rt.P50)
	assert.Equal(t, 96*time.Millisecond, rt.P95)
	assert.Equal(t, 100*time.Millisecond, durations[0], "input must not be reordered")
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: %w", ErrInvalidState, ErrSessionNotFound), "invalid_state"},
		{&Error{Err: ErrMissingAccessToken}, "missing_access_token"},
		{&Error{Err: ErrProfileParse}, "parse"},
		{&Error{Err: ErrNetworkError, Cause: slack.ErrCircuitOpen}, "circuit_open"},
		{ParseError(ProviderName, "exchange", "invalid_code", ""), "invalid_code"},
		{&Error{Err: ErrProfileTransport}, "network"},
		{rejected(nil), "rejected"},
		{fmt.Errorf("other"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err), tt.err.Error())
	}
}
