package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageFetchParsesWindows(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/oauth/usage", r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "oauth-2025-04-20", r.Header.Get("anthropic-beta"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"five_hour": {"utilization": 42.5, "resets_at": "2026-08-20T15:00:00Z"},
			"seven_day": {"utilization": 12.0, "resets_at": "2026-08-24T00:00:00Z"}
		}`))
	}))
	t.Cleanup(server.Close)

	client := UsageClient{BaseURL: server.URL, HTTPClient: server.Client()}

	usage, err := client.Fetch(context.Background(), "at-1")
	require.NoError(t, err)
	require.NotNil(t, usage.FiveHour)
	assert.InDelta(t, 42.5, usage.FiveHour.Utilization, 0.001)
	assert.Equal(t, time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC), usage.FiveHour.ResetsAt)
	require.NotNil(t, usage.SevenDay)
	assert.InDelta(t, 12.0, usage.SevenDay.Utilization, 0.001)
}

func TestUsageFetchToleratesMissingWindows(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"five_hour": {"utilization": 3.0}}`))
	}))
	t.Cleanup(server.Close)

	client := UsageClient{BaseURL: server.URL, HTTPClient: server.Client()}

	usage, err := client.Fetch(context.Background(), "at-1")
	require.NoError(t, err)
	require.NotNil(t, usage.FiveHour)
	assert.True(t, usage.FiveHour.ResetsAt.IsZero())
	assert.Nil(t, usage.SevenDay)
}

func TestUsageFetchExpiredSessionMapsToSentinel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication_error"}`))
	}))
	t.Cleanup(server.Close)

	client := UsageClient{BaseURL: server.URL, HTTPClient: server.Client()}

	_, err := client.Fetch(context.Background(), "at-stale")
	require.ErrorIs(t, err, ErrUsageSessionExpired)
	assert.Contains(t, err.Error(), "status 401")
}

func TestUsageFetchUnexpectedStatusCarriesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("gateway error"))
	}))
	t.Cleanup(server.Close)

	client := UsageClient{BaseURL: server.URL, HTTPClient: server.Client()}

	_, err := client.Fetch(context.Background(), "at-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "gateway error")
}

func TestUsageFetchRequiresAccessToken(t *testing.T) {
	t.Parallel()

	client := UsageClient{BaseURL: "http://127.0.0.1:0"}

	_, err := client.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token is empty")
}
