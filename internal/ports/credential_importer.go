package ports

import (
	"context"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

// CredentialImporter reads another tool's stored login and maps it into this
// system's credential shape.
type CredentialImporter interface {
	Import(ctx context.Context) (domain.Credential, error)
}
