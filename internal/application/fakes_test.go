package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory CredentialStore with the same account-existence
// rules as the file store.
type memStore struct {
	mu    sync.Mutex
	state domain.State
}

var _ ports.CredentialStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{state: domain.NewState()}
}

func copyState(state domain.State) domain.State {
	out := domain.State{
		Accounts:    append([]domain.Account(nil), state.Accounts...),
		Credentials: make(map[domain.AccountID]domain.Credential, len(state.Credentials)),
		SelectedID:  state.SelectedID,
	}
	for id, credential := range state.Credentials {
		out.Credentials[id] = credential
	}
	return out
}

func (m *memStore) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state), nil
}

func (m *memStore) Save(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = copyState(state)
	return nil
}

func (m *memStore) Update(ctx context.Context, fn func(state *domain.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state := copyState(m.state)
	if err := fn(&state); err != nil {
		return err
	}
	m.state = state
	return nil
}

func (m *memStore) GetAccount(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.state.Account(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (m *memStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Account(nil), m.state.Accounts...), nil
}

func (m *memStore) GetCredential(ctx context.Context, id domain.AccountID) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Account(id); !ok {
		return domain.Credential{}, domain.ErrAccountNotFound
	}
	return m.state.Credentials[id], nil
}

func (m *memStore) PutCredential(ctx context.Context, id domain.AccountID, credential domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Account(id); !ok {
		return domain.ErrAccountNotFound
	}
	m.state.Credentials[id] = credential
	return nil
}

func (m *memStore) DeleteCredential(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Account(id); !ok {
		return domain.ErrAccountNotFound
	}
	m.state.Credentials[id] = domain.Credential{}
	return nil
}

func (m *memStore) SetSelected(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if _, ok := m.state.Account(id); !ok {
			return domain.ErrAccountNotFound
		}
	}
	m.state.SelectedID = id
	return nil
}

func (m *memStore) GetSelected(ctx context.Context) (domain.AccountID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SelectedID, nil
}

func seedAccount(t *testing.T, store *memStore, id, name string, credential domain.Credential) {
	t.Helper()

	require.NoError(t, store.Update(context.Background(), func(state *domain.State) error {
		state.UpsertAccount(domain.Account{ID: domain.AccountID(id), Name: name})
		state.EnsureSelection()
		if !credential.IsZero() {
			state.Credentials[domain.AccountID(id)] = credential
		}
		return nil
	}))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, refreshToken string) (ports.TokenSet, error)
}

var _ ports.RefreshClient = (*fakeRefresher)(nil)

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (ports.TokenSet, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return ports.TokenSet{}, errors.New("unexpected refresh call")
	}
	return fn(ctx, refreshToken)
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImporter struct {
	credential domain.Credential
	err        error
}

var _ ports.CredentialImporter = (*fakeImporter)(nil)

func (f *fakeImporter) Import(context.Context) (domain.Credential, error) {
	if f.err != nil {
		return domain.Credential{}, f.err
	}
	return f.credential, nil
}
