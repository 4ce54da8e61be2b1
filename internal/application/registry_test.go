package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(store *memStore) *Registry {
	registry := NewRegistry(store, nil, newFakeClock(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)))
	return registry
}

func TestAddAccountSelectsFirstAccountOnly(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	first, err := registry.AddAccount(context.Background(), "Work", "rocket")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Work", first.Name)
	assert.Equal(t, "rocket", first.Icon)

	second, err := registry.AddAccount(context.Background(), "Personal", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	selected, err := store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, selected)
}

func TestAddAccountRejectsBlankName(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(newMemStore())

	_, err := registry.AddAccount(context.Background(), "   ", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account name is empty")
}

func TestUpdateAccountAppliesPartialChanges(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	account, err := registry.AddAccount(context.Background(), "Work", "rocket")
	require.NoError(t, err)

	name := "Work Pro"
	updated, err := registry.UpdateAccount(context.Background(), account.ID, AccountUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Work Pro", updated.Name)
	assert.Equal(t, "rocket", updated.Icon)

	icon := "bolt"
	updated, err = registry.UpdateAccount(context.Background(), account.ID, AccountUpdate{Icon: &icon})
	require.NoError(t, err)
	assert.Equal(t, "Work Pro", updated.Name)
	assert.Equal(t, "bolt", updated.Icon)

	_, err = registry.UpdateAccount(context.Background(), "acc-missing", AccountUpdate{Name: &name})
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRemoveSelectedAccountMovesSelectionToFirstRemaining(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	first, err := registry.AddAccount(context.Background(), "Work", "")
	require.NoError(t, err)
	second, err := registry.AddAccount(context.Background(), "Personal", "")
	require.NoError(t, err)

	require.NoError(t, registry.RemoveAccount(context.Background(), first.ID))

	selected, err := store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, selected)

	require.NoError(t, registry.RemoveAccount(context.Background(), second.ID))

	selected, err = store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID(""), selected)
}

func TestRemoveUnselectedAccountKeepsSelection(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	first, err := registry.AddAccount(context.Background(), "Work", "")
	require.NoError(t, err)
	second, err := registry.AddAccount(context.Background(), "Personal", "")
	require.NoError(t, err)

	require.NoError(t, registry.RemoveAccount(context.Background(), second.ID))

	selected, err := store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, selected)
}

func TestRemoveAccountDropsCredential(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	account, err := registry.AddAccount(context.Background(), "Work", "")
	require.NoError(t, err)
	require.NoError(t, store.PutCredential(context.Background(), account.ID, domain.Credential{AccessToken: "at", RefreshToken: "rt"}))

	require.NoError(t, registry.RemoveAccount(context.Background(), account.ID))

	_, err = store.GetCredential(context.Background(), account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = registry.RemoveAccount(context.Background(), account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSelectAccountValidatesExistence(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := newTestRegistry(store)

	_, err := registry.AddAccount(context.Background(), "Work", "")
	require.NoError(t, err)
	second, err := registry.AddAccount(context.Background(), "Personal", "")
	require.NoError(t, err)

	require.NoError(t, registry.SelectAccount(context.Background(), second.ID))

	selected, err := store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, selected)

	err = registry.SelectAccount(context.Background(), "acc-missing")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSelectedAccountFallsBackOnDanglingPointer(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), domain.State{
		Accounts:    []domain.Account{{ID: "acc-1", Name: "Work"}, {ID: "acc-2", Name: "Personal"}},
		Credentials: map[domain.AccountID]domain.Credential{},
		SelectedID:  "acc-gone",
	}))

	registry := newTestRegistry(store)

	account, ok, err := registry.SelectedAccount(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID("acc-1"), account.ID)

	// The fallback is read-side only; the stored pointer is untouched until
	// the next mutation.
	stored, err := store.GetSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("acc-gone"), stored)
}

func TestSelectedAccountEmptyRegistry(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(newMemStore())

	_, ok, err := registry.SelectedAccount(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryPublishesEvents(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	events := NewEvents()
	registry := NewRegistry(store, events, newFakeClock(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)))

	received, cancel := events.Subscribe(8)
	defer cancel()

	account, err := registry.AddAccount(context.Background(), "Work", "")
	require.NoError(t, err)
	require.NoError(t, registry.SelectAccount(context.Background(), account.ID))
	require.NoError(t, registry.RemoveAccount(context.Background(), account.ID))

	var kinds []EventKind
	for i := 0; i < 3; i++ {
		select {
		case event := <-received:
			kinds = append(kinds, event.Kind)
			assert.Equal(t, account.ID, event.AccountID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	assert.Equal(t, []EventKind{EventAccountAdded, EventAccountSelected, EventAccountRemoved}, kinds)
}
