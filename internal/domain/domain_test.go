package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialExpiredAppliesSafetyMargin(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "well before expiry", expiresAt: now.Add(time.Hour), want: false},
		{name: "just outside margin", expiresAt: now.Add(301 * time.Second), want: false},
		{name: "exactly at margin", expiresAt: now.Add(300 * time.Second), want: true},
		{name: "inside margin", expiresAt: now.Add(299 * time.Second), want: true},
		{name: "already past", expiresAt: now.Add(-time.Minute), want: true},
		{name: "zero expiry", expiresAt: time.Time{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credential{AccessToken: "at", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, c.Expired(now))
		})
	}
}

func TestCredentialClassification(t *testing.T) {
	assert.True(t, Credential{}.IsZero())
	assert.False(t, Credential{AccessToken: "at"}.IsZero())
	assert.False(t, Credential{RefreshToken: "rt"}.IsZero())

	assert.True(t, Credential{AccessToken: "at", RefreshToken: "rt"}.Refreshable())
	assert.False(t, Credential{AccessToken: "at"}.Refreshable())
}

func TestStateUpsertAccountPreservesOrder(t *testing.T) {
	state := NewState()
	state.UpsertAccount(Account{ID: "acc-1", Name: "Primary"})
	state.UpsertAccount(Account{ID: "acc-2", Name: "Backup"})
	state.UpsertAccount(Account{ID: "acc-1", Name: "Renamed"})

	require.Len(t, state.Accounts, 2)
	assert.Equal(t, AccountID("acc-1"), state.Accounts[0].ID)
	assert.Equal(t, "Renamed", state.Accounts[0].Name)
	assert.Equal(t, AccountID("acc-2"), state.Accounts[1].ID)
}

func TestStateRemoveAccountDropsCredential(t *testing.T) {
	state := NewState()
	state.UpsertAccount(Account{ID: "acc-1", Name: "Primary"})
	state.Credentials["acc-1"] = Credential{AccessToken: "at"}

	require.True(t, state.RemoveAccount("acc-1"))
	assert.Empty(t, state.Accounts)
	assert.NotContains(t, state.Credentials, AccountID("acc-1"))

	assert.False(t, state.RemoveAccount("acc-1"))
}

func TestStateEnsureSelection(t *testing.T) {
	tests := []struct {
		name     string
		accounts []Account
		selected AccountID
		want     AccountID
	}{
		{name: "empty registry clears selection", accounts: nil, selected: "acc-1", want: ""},
		{name: "valid selection is preserved", accounts: []Account{{ID: "acc-1"}, {ID: "acc-2"}}, selected: "acc-2", want: "acc-2"},
		{name: "dangling selection falls back to first", accounts: []Account{{ID: "acc-1"}, {ID: "acc-2"}}, selected: "acc-9", want: "acc-1"},
		{name: "missing selection falls back to first", accounts: []Account{{ID: "acc-1"}}, selected: "", want: "acc-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{Accounts: tt.accounts, SelectedID: tt.selected}
			state.EnsureSelection()
			assert.Equal(t, tt.want, state.SelectedID)
		})
	}
}
