// Package claudecode imports credentials persisted by the Claude Code CLI,
// reading the same locations it writes: the platform keychain where one
// exists, and the credentials file under the Claude config directory.
package claudecode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
)

// keychainService is the entry name Claude Code uses in the macOS Keychain
// and in libsecret-backed stores on Linux.
const keychainService = "Claude Code-credentials"

// Source yields the raw credential blob from one location. A read failure
// means "nothing here"; the importer moves on to the next source.
type Source func(ctx context.Context) ([]byte, error)

type Importer struct {
	sources []Source
}

var _ ports.CredentialImporter = (*Importer)(nil)

// NewImporter probes the platform keychain first and falls back to the
// credentials file at path.
func NewImporter(credentialsPath string) *Importer {
	return &Importer{sources: platformSources(credentialsPath)}
}

func NewImporterWithSources(sources ...Source) *Importer {
	return &Importer{sources: sources}
}

// Import returns the credential from the first source that yields data.
// Data that matches neither known format stops the search with
// ErrImportMalformed rather than silently trying weaker sources.
func (i *Importer) Import(ctx context.Context) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	for _, source := range i.sources {
		data, err := source(ctx)
		if err != nil {
			continue
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		return parseCredential(data)
	}

	return domain.Credential{}, domain.ErrImportNotFound
}

type credentialBlob struct {
	ClaudeAiOauth *struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresAt    int64  `json:"expiresAt"`
	} `json:"claudeAiOauth"`
	OauthToken string `json:"oauth_token"`
}

func parseCredential(data []byte) (domain.Credential, error) {
	var blob credentialBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrImportMalformed, err)
	}

	if nested := blob.ClaudeAiOauth; nested != nil && nested.AccessToken != "" {
		credential := domain.Credential{
			AccessToken:  nested.AccessToken,
			RefreshToken: nested.RefreshToken,
		}
		if nested.ExpiresAt > 0 {
			credential.ExpiresAt = time.UnixMilli(nested.ExpiresAt).UTC()
		}
		return credential, nil
	}

	if blob.OauthToken != "" {
		// Legacy single-token format: no refresh capability and no expiry
		// metadata, so the credential counts as expired until re-imported.
		return domain.Credential{AccessToken: blob.OauthToken}, nil
	}

	return domain.Credential{}, fmt.Errorf("%w: unrecognized credential shape", domain.ErrImportMalformed)
}

func fileSource(path string) Source {
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execSource(run runFunc, name string, args ...string) Source {
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return run(ctx, name, args...)
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("locate %s command: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		return nil, fmt.Errorf("run %s: %w: %s", name, err, message)
	}

	return bytes.TrimSpace(stdout.Bytes()), nil
}
