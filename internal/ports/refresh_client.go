package ports

import (
	"context"
	"time"
)

// TokenSet is the outcome of a refresh-token exchange. RefreshToken is empty
// when the server did not rotate it; callers keep the previous one.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type RefreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}
