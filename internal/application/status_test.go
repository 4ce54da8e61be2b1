package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusesReportsAccountsInCreationOrder(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedAccount(t, store, "acc-1", "Work", managedCredential(testNow.Add(time.Hour)))
	seedAccount(t, store, "acc-2", "Personal", domain.Credential{})
	seedAccount(t, store, "acc-3", "Legacy", domain.Credential{AccessToken: "at-old"})
	require.NoError(t, store.SetSelected(context.Background(), "acc-2"))

	lifecycle := NewLifecycle(store, &fakeRefresher{}, nil, nil, newFakeClock(testNow))

	statuses, err := lifecycle.Statuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, domain.AccountID("acc-1"), statuses[0].Account.ID)
	assert.Equal(t, CredentialStateValid, statuses[0].State)
	assert.True(t, statuses[0].Refreshable)
	assert.False(t, statuses[0].Selected)

	assert.Equal(t, CredentialStateNone, statuses[1].State)
	assert.True(t, statuses[1].Selected)

	// A token without expiry metadata reads as expired until replaced.
	assert.Equal(t, CredentialStateExpired, statuses[2].State)
	assert.False(t, statuses[2].Refreshable)
}

func TestStatusesAppliesSelectionFallback(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), domain.State{
		Accounts:    []domain.Account{{ID: "acc-1", Name: "Work"}},
		Credentials: map[domain.AccountID]domain.Credential{},
		SelectedID:  "acc-gone",
	}))

	lifecycle := NewLifecycle(store, &fakeRefresher{}, nil, nil, newFakeClock(testNow))

	statuses, err := lifecycle.Statuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Selected)
}

func TestStatusesEmptyRegistry(t *testing.T) {
	t.Parallel()

	lifecycle := NewLifecycle(newMemStore(), &fakeRefresher{}, nil, nil, newFakeClock(testNow))

	statuses, err := lifecycle.Statuses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
