package ports

import (
	"context"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

// CredentialStore persists accounts, their credentials, and the selection
// pointer as one durable unit. Implementations must write atomically so a
// crash never leaves a partially updated file behind.
type CredentialStore interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
	// Update applies fn to the freshly loaded state and persists the result
	// under the store's writer lock, so read-modify-write cycles from
	// concurrent callers never interleave.
	Update(ctx context.Context, fn func(state *domain.State) error) error

	GetAccount(ctx context.Context, id domain.AccountID) (domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	GetCredential(ctx context.Context, id domain.AccountID) (domain.Credential, error)
	PutCredential(ctx context.Context, id domain.AccountID, credential domain.Credential) error
	DeleteCredential(ctx context.Context, id domain.AccountID) error

	SetSelected(ctx context.Context, id domain.AccountID) error
	GetSelected(ctx context.Context) (domain.AccountID, error)
}
