package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
	"golang.org/x/sync/singleflight"
)

// Lifecycle hands out valid access tokens. At most one refresh per account
// runs at a time; concurrent callers attach to the in-flight exchange and
// share its outcome. Only successful exchanges are persisted.
type Lifecycle struct {
	store     ports.CredentialStore
	refresher ports.RefreshClient
	importer  ports.CredentialImporter
	events    *Events
	clock     ports.Clock
	sources   []TokenSource

	flight singleflight.Group

	// deadTokens records refresh tokens the server has rejected, keyed by
	// account. Keying on the token value means storing any different
	// credential clears the latch without extra bookkeeping.
	mu         sync.Mutex
	deadTokens map[domain.AccountID]string
}

func NewLifecycle(store ports.CredentialStore, refresher ports.RefreshClient, importer ports.CredentialImporter, events *Events, clock ports.Clock) *Lifecycle {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	lifecycle := &Lifecycle{
		store:      store,
		refresher:  refresher,
		importer:   importer,
		events:     events,
		clock:      clock,
		deadTokens: map[domain.AccountID]string{},
	}
	lifecycle.sources = []TokenSource{
		managedSource{lifecycle: lifecycle},
		newEnvSource(EnvTokenVar),
		manualSource{lifecycle: lifecycle},
	}

	return lifecycle
}

// GetValidToken returns the first access token the source chain can provide
// for the account: a managed store credential (refreshed when needed), then
// the process env override, then a stored manual token.
func (l *Lifecycle) GetValidToken(ctx context.Context, id domain.AccountID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, source := range l.sources {
		token, found, err := source.Resolve(ctx, id)
		if err != nil {
			return "", err
		}
		if found {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: account %s", domain.ErrNoCredential, id)
}

// NeedsRefresh reports whether a proactive refresh would act on the account:
// a refreshable credential already inside the safety margin. It never
// mutates state, so schedulers and UIs can poll it freely.
func (l *Lifecycle) NeedsRefresh(ctx context.Context, id domain.AccountID) (bool, error) {
	credential, err := l.storedCredential(ctx, id)
	if err != nil {
		return false, err
	}
	if !credential.Refreshable() {
		return false, nil
	}

	return credential.Expired(l.clock.Now()), nil
}

// SetCredential stores a manually supplied credential for the account.
func (l *Lifecycle) SetCredential(ctx context.Context, id domain.AccountID, credential domain.Credential) error {
	if credential.AccessToken == "" {
		return errors.New("access token is empty")
	}

	if err := l.store.PutCredential(ctx, id, credential); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	l.events.Publish(EventCredentialStored, id, l.clock.Now())
	return nil
}

// ClearCredential wipes the account's credential material but keeps the
// account itself.
func (l *Lifecycle) ClearCredential(ctx context.Context, id domain.AccountID) error {
	if err := l.store.DeleteCredential(ctx, id); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}

	l.clearDeadToken(id)
	l.events.Publish(EventCredentialCleared, id, l.clock.Now())
	return nil
}

// Import copies the external CLI's current login into the account. When no
// source has anything to offer it reports (false, nil) and mutates nothing.
func (l *Lifecycle) Import(ctx context.Context, id domain.AccountID) (bool, error) {
	credential, err := l.importer.Import(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrImportNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("import credentials: %w", err)
	}

	if err := l.store.PutCredential(ctx, id, credential); err != nil {
		return false, fmt.Errorf("store imported credential: %w", err)
	}

	l.events.Publish(EventCredentialImported, id, l.clock.Now())
	return true, nil
}

func (l *Lifecycle) storedCredential(ctx context.Context, id domain.AccountID) (domain.Credential, error) {
	credential, err := l.store.GetCredential(ctx, id)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return credential, nil
}

func (l *Lifecycle) serveManaged(ctx context.Context, id domain.AccountID, credential domain.Credential) (string, error) {
	if credential.AccessToken != "" && !credential.Expired(l.clock.Now()) {
		return credential.AccessToken, nil
	}

	if dead := l.deadToken(id); dead != "" && dead == credential.RefreshToken {
		return "", fmt.Errorf("%w: account %s requires a fresh import", domain.ErrRefreshUnauthorized, id)
	}

	return l.refresh(ctx, id)
}

func (l *Lifecycle) refresh(ctx context.Context, id domain.AccountID) (string, error) {
	token, err, _ := l.flight.Do(string(id), func() (any, error) {
		return l.doRefresh(ctx, id)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

func (l *Lifecycle) doRefresh(ctx context.Context, id domain.AccountID) (string, error) {
	// Re-read inside the flight: a caller that queued behind a finished
	// refresh must serve the fresh credential instead of refreshing again.
	credential, err := l.storedCredential(ctx, id)
	if err != nil {
		return "", err
	}

	if credential.AccessToken != "" && !credential.Expired(l.clock.Now()) {
		return credential.AccessToken, nil
	}

	if credential.RefreshToken == "" {
		return "", fmt.Errorf("%w: account %s", domain.ErrCredentialExpired, id)
	}

	if dead := l.deadToken(id); dead != "" && dead == credential.RefreshToken {
		return "", fmt.Errorf("%w: account %s requires a fresh import", domain.ErrRefreshUnauthorized, id)
	}

	tokens, err := l.refresher.Refresh(ctx, credential.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshUnauthorized) {
			l.latchDeadToken(id, credential.RefreshToken)
		}
		return "", fmt.Errorf("refresh account %s: %w", id, err)
	}

	refreshed := domain.Credential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    l.clock.Now().Add(tokens.ExpiresIn),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = credential.RefreshToken
	}

	if err := l.store.PutCredential(ctx, id, refreshed); err != nil {
		// The account can disappear while the exchange is in flight. The
		// result is dropped rather than resurrecting its credential.
		return "", fmt.Errorf("store refreshed credential: %w", err)
	}

	l.clearDeadToken(id)
	l.events.Publish(EventCredentialRefreshed, id, l.clock.Now())
	return refreshed.AccessToken, nil
}

func (l *Lifecycle) deadToken(id domain.AccountID) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deadTokens[id]
}

func (l *Lifecycle) latchDeadToken(id domain.AccountID, refreshToken string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deadTokens[id] = refreshToken
}

func (l *Lifecycle) clearDeadToken(id domain.AccountID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.deadTokens, id)
}
