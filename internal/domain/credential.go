package domain

import "time"

// RefreshSafetyMargin is subtracted from a credential's expiry before the
// access token is handed out, so callers never receive a token about to die
// mid-request. Proactive refresh uses the same margin, which keeps "needs
// refresh" and "cannot be served" in agreement.
const RefreshSafetyMargin = 300 * time.Second

// Credential holds the OAuth material for one account. A non-empty
// RefreshToken makes it managed (renewable without user interaction); an
// access token alone is manual and simply expires.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IsZero reports whether no credential material is stored at all.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

func (c Credential) Refreshable() bool {
	return c.RefreshToken != ""
}

// ExpiresWithin reports whether the credential expires before now+margin.
// A zero expiry always reports true, so credentials imported without expiry
// metadata are renewed or replaced instead of served stale.
func (c Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !c.ExpiresAt.After(now.Add(margin))
}

// Expired applies the default safety margin.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresWithin(now, RefreshSafetyMargin)
}
