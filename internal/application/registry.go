package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
	"github.com/google/uuid"
)

// Registry owns account identity and the selection pointer. Every mutation
// runs as one atomic store update, so the selection invariant holds even
// when removing the selected account cascades into a re-selection.
type Registry struct {
	store  ports.CredentialStore
	events *Events
	clock  ports.Clock
	newID  func() string
}

func NewRegistry(store ports.CredentialStore, events *Events, clock ports.Clock) *Registry {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Registry{store: store, events: events, clock: clock, newID: uuid.NewString}
}

// AccountUpdate carries partial account changes; nil fields stay untouched.
type AccountUpdate struct {
	Name *string
	Icon *string
}

func (r *Registry) AddAccount(ctx context.Context, name, icon string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, errors.New("account name is empty")
	}

	account := domain.Account{ID: domain.AccountID(r.newID()), Name: name, Icon: icon}
	err := r.store.Update(ctx, func(state *domain.State) error {
		state.UpsertAccount(account)
		state.EnsureSelection()
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("add account: %w", err)
	}

	r.events.Publish(EventAccountAdded, account.ID, r.clock.Now())
	return account, nil
}

func (r *Registry) UpdateAccount(ctx context.Context, id domain.AccountID, update AccountUpdate) (domain.Account, error) {
	var updated domain.Account
	err := r.store.Update(ctx, func(state *domain.State) error {
		account, ok := state.Account(id)
		if !ok {
			return domain.ErrAccountNotFound
		}

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return errors.New("account name is empty")
			}
			account.Name = name
		}
		if update.Icon != nil {
			account.Icon = *update.Icon
		}

		state.UpsertAccount(account)
		updated = account
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}

	r.events.Publish(EventAccountUpdated, id, r.clock.Now())
	return updated, nil
}

// RemoveAccount deletes the account and its credential together. When the
// removed account was selected, selection moves to the first remaining
// account, or clears when none remain.
func (r *Registry) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	err := r.store.Update(ctx, func(state *domain.State) error {
		if !state.RemoveAccount(id) {
			return domain.ErrAccountNotFound
		}
		state.EnsureSelection()
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove account: %w", err)
	}

	r.events.Publish(EventAccountRemoved, id, r.clock.Now())
	return nil
}

func (r *Registry) SelectAccount(ctx context.Context, id domain.AccountID) error {
	err := r.store.Update(ctx, func(state *domain.State) error {
		if _, ok := state.Account(id); !ok {
			return domain.ErrAccountNotFound
		}
		state.SelectedID = id
		return nil
	})
	if err != nil {
		return fmt.Errorf("select account: %w", err)
	}

	r.events.Publish(EventAccountSelected, id, r.clock.Now())
	return nil
}

func (r *Registry) Account(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, err := r.store.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (r *Registry) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// SelectedAccount resolves the selection against current state. A dangling
// pointer left by an external edit falls back to the first account without
// persisting; the next mutation re-establishes the invariant on disk.
func (r *Registry) SelectedAccount(ctx context.Context) (domain.Account, bool, error) {
	state, err := r.store.Load(ctx)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("load accounts state: %w", err)
	}

	state.EnsureSelection()
	if state.SelectedID == "" {
		return domain.Account{}, false, nil
	}

	account, _ := state.Account(state.SelectedID)
	return account, true, nil
}
