package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

type CredentialState string

const (
	CredentialStateNone    CredentialState = "none"
	CredentialStateValid   CredentialState = "valid"
	CredentialStateExpired CredentialState = "expired"
)

// UsageWindow is one rolling rate-limit window attached to a status for
// display. Utilization is percent used.
type UsageWindow struct {
	Utilization float64
	ResetsAt    time.Time
}

// Status summarizes one account's credential for display.
type Status struct {
	Account     domain.Account
	Selected    bool
	State       CredentialState
	Refreshable bool
	ExpiresAt   time.Time
	FiveHour    *UsageWindow
	SevenDay    *UsageWindow
}

// Statuses reports every account in creation order. It reads a single state
// snapshot so the selection marker and credential states are consistent.
func (l *Lifecycle) Statuses(ctx context.Context) ([]Status, error) {
	state, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts state: %w", err)
	}
	state.EnsureSelection()

	now := l.clock.Now()
	statuses := make([]Status, 0, len(state.Accounts))
	for _, account := range state.Accounts {
		credential := state.Credentials[account.ID]
		statuses = append(statuses, Status{
			Account:     account,
			Selected:    account.ID == state.SelectedID,
			State:       credentialState(credential, now),
			Refreshable: credential.Refreshable(),
			ExpiresAt:   credential.ExpiresAt,
		})
	}

	return statuses, nil
}

func credentialState(credential domain.Credential, now time.Time) CredentialState {
	switch {
	case credential.IsZero():
		return CredentialStateNone
	case credential.Expired(now):
		return CredentialStateExpired
	default:
		return CredentialStateValid
	}
}
