package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
)

// Public identifiers of the Claude Code OAuth client. Tokens minted for it
// are renewed against the console token endpoint.
const (
	DefaultTokenURL = "https://console.anthropic.com/v1/oauth/token"
	ClientID        = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
)

const (
	defaultRefreshTimeout = 20 * time.Second
	defaultTokenLifetime  = 3600 * time.Second
	maxResponseBytes      = 1 << 20
)

// RefreshClient exchanges a refresh token for a fresh token set. The zero
// value talks to the production endpoint with default timeouts.
type RefreshClient struct {
	TokenURL       string
	ClientID       string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.RefreshClient = RefreshClient{}

type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (c RefreshClient) Refresh(ctx context.Context, refreshToken string) (ports.TokenSet, error) {
	if refreshToken == "" {
		return ports.TokenSet{}, fmt.Errorf("%w: refresh token is empty", domain.ErrRefreshUnauthorized)
	}

	payload, err := json.Marshal(refreshRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
		ClientID:     c.clientID(),
	})
	if err != nil {
		return ports.TokenSet{}, fmt.Errorf("encode refresh request: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.tokenURL(), bytes.NewReader(payload))
	if err != nil {
		return ports.TokenSet{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return ports.TokenSet{}, fmt.Errorf("%w: %v", domain.ErrRefreshNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.TokenSet{}, fmt.Errorf("%w: read response: %v", domain.ErrRefreshNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ports.TokenSet{}, fmt.Errorf("%w: status %d: %s", domain.ErrRefreshUnauthorized, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return ports.TokenSet{}, fmt.Errorf("%w: status %d: %s", domain.ErrRefreshNetwork, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded refreshResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ports.TokenSet{}, fmt.Errorf("%w: %v", domain.ErrRefreshMalformed, err)
	}
	if decoded.AccessToken == "" {
		return ports.TokenSet{}, fmt.Errorf("%w: access_token missing", domain.ErrRefreshMalformed)
	}

	expiresIn := time.Duration(decoded.ExpiresIn) * time.Second
	if decoded.ExpiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}

	return ports.TokenSet{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

func (c RefreshClient) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return DefaultTokenURL
}

func (c RefreshClient) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return ClientID
}

func (c RefreshClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c RefreshClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRefreshTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}
