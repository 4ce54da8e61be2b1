package application

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

// EnvTokenVar supplies an access token for the whole process lifetime. It
// outranks stored manual tokens but loses to managed credentials, which the
// store can keep fresh on its own.
const EnvTokenVar = "CA_ACCESS_TOKEN"

// TokenSource is one candidate provider in the fixed-priority chain the
// lifecycle walks. found=false means "nothing here, ask the next source";
// an error stops the chain so failures are surfaced, never papered over.
type TokenSource interface {
	Name() string
	Resolve(ctx context.Context, id domain.AccountID) (token string, found bool, err error)
}

// managedSource serves refreshable store credentials, renewing them through
// the lifecycle when they sit inside the safety margin.
type managedSource struct {
	lifecycle *Lifecycle
}

func (s managedSource) Name() string { return "managed" }

func (s managedSource) Resolve(ctx context.Context, id domain.AccountID) (string, bool, error) {
	credential, err := s.lifecycle.storedCredential(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !credential.Refreshable() {
		return "", false, nil
	}

	token, err := s.lifecycle.serveManaged(ctx, id, credential)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// envSource serves the process-wide override token without touching the
// store or the clock.
type envSource struct {
	key    string
	lookup func(string) (string, bool)
}

func newEnvSource(key string) envSource {
	return envSource{key: key, lookup: os.LookupEnv}
}

func (s envSource) Name() string { return "env" }

func (s envSource) Resolve(_ context.Context, _ domain.AccountID) (string, bool, error) {
	value, ok := s.lookup(s.key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

// manualSource serves stored tokens that carry no refresh capability. Past
// the safety margin there is nothing to renew, so expiry is an error rather
// than a fall-through.
type manualSource struct {
	lifecycle *Lifecycle
}

func (s manualSource) Name() string { return "manual" }

func (s manualSource) Resolve(ctx context.Context, id domain.AccountID) (string, bool, error) {
	credential, err := s.lifecycle.storedCredential(ctx, id)
	if err != nil {
		return "", false, err
	}
	if credential.IsZero() || credential.Refreshable() || credential.AccessToken == "" {
		return "", false, nil
	}

	if credential.Expired(s.lifecycle.clock.Now()) {
		return "", false, fmt.Errorf("%w: manual token for account %s", domain.ErrCredentialExpired, id)
	}

	return credential.AccessToken, true, nil
}
