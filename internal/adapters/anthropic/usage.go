package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUsageBaseURL = "https://api.anthropic.com"
	usagePath           = "/api/oauth/usage"
	oauthBetaHeader     = "oauth-2025-04-20"
)

// ErrUsageSessionExpired marks an access token the usage endpoint no longer
// accepts. Callers should refresh or re-import before retrying.
var ErrUsageSessionExpired = errors.New("usage session expired")

// UsageWindow is one rolling rate-limit window as reported by the API.
type UsageWindow struct {
	Utilization float64
	ResetsAt    time.Time
}

type Usage struct {
	FiveHour *UsageWindow
	SevenDay *UsageWindow
}

// UsageClient reads rate-limit utilization for an OAuth access token.
type UsageClient struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type usageWindowPayload struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

type usagePayload struct {
	FiveHour *usageWindowPayload `json:"five_hour"`
	SevenDay *usageWindowPayload `json:"seven_day"`
}

func (c UsageClient) Fetch(ctx context.Context, accessToken string) (Usage, error) {
	if accessToken == "" {
		return Usage{}, errors.New("access token is empty")
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultUsageBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + usagePath

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Usage{}, fmt.Errorf("create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("anthropic-beta", oauthBetaHeader)
	req.Header.Set("User-Agent", "ca/usage")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Usage{}, fmt.Errorf("fetch usage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Usage{}, fmt.Errorf("read usage response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Usage{}, fmt.Errorf("%w: status %d: %s", ErrUsageSessionExpired, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Usage{}, fmt.Errorf("fetch usage: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded usagePayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Usage{}, fmt.Errorf("decode usage response: %w", err)
	}

	return Usage{
		FiveHour: windowFromPayload(decoded.FiveHour),
		SevenDay: windowFromPayload(decoded.SevenDay),
	}, nil
}

func windowFromPayload(payload *usageWindowPayload) *UsageWindow {
	if payload == nil {
		return nil
	}

	window := &UsageWindow{Utilization: payload.Utilization}
	if payload.ResetsAt != "" {
		if resetsAt, err := time.Parse(time.RFC3339, payload.ResetsAt); err == nil {
			window.ResetsAt = resetsAt
		}
	}
	return window
}

func (c UsageClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c UsageClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRefreshTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}
