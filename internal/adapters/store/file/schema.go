package file

import (
	"fmt"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version           int             `json:"version"`
	Accounts          []accountSchema `json:"accounts"`
	SelectedAccountID string          `json:"selectedAccountID,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
}

func toSchema(state domain.State) fileSchema {
	file := fileSchema{
		Version:           currentSchemaVersion,
		Accounts:          make([]accountSchema, 0, len(state.Accounts)),
		SelectedAccountID: string(state.SelectedID),
	}

	for _, account := range state.Accounts {
		credential := state.Credentials[account.ID]
		entry := accountSchema{
			ID:           string(account.ID),
			Name:         account.Name,
			Icon:         account.Icon,
			AccessToken:  credential.AccessToken,
			RefreshToken: credential.RefreshToken,
		}
		if !credential.ExpiresAt.IsZero() {
			entry.ExpiresAt = credential.ExpiresAt.Unix()
		}
		file.Accounts = append(file.Accounts, entry)
	}

	return file
}

func fromSchema(file fileSchema) domain.State {
	state := domain.State{
		Accounts:    make([]domain.Account, 0, len(file.Accounts)),
		Credentials: make(map[domain.AccountID]domain.Credential, len(file.Accounts)),
		SelectedID:  domain.AccountID(file.SelectedAccountID),
	}

	for _, entry := range file.Accounts {
		id := domain.AccountID(entry.ID)
		state.Accounts = append(state.Accounts, domain.Account{ID: id, Name: entry.Name, Icon: entry.Icon})
		state.Credentials[id] = credentialFromSchema(entry)
	}

	return state
}

func credentialFromSchema(entry accountSchema) domain.Credential {
	credential := domain.Credential{
		AccessToken:  entry.AccessToken,
		RefreshToken: entry.RefreshToken,
	}
	if entry.ExpiresAt > 0 {
		credential.ExpiresAt = time.Unix(entry.ExpiresAt, 0).UTC()
	}
	return credential
}
