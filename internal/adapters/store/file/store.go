package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	configName         = "ca"
	configType         = "toml"
	accountsPathKey    = "accounts.path"
	accountsFileMode   = 0o600
	accountsDirMode    = 0o700
	accountsConfigDir  = ".claude"
	accountsConfigFile = "accounts.json"
	tempFilePattern    = ".accounts-*.json.tmp"
)

// Store keeps the whole account state in a single JSON file, replaced
// atomically on every write. The file may be edited by hand between runs;
// reads re-normalize whatever they find.
type Store struct {
	accountsPath string
	mu           *sync.RWMutex
}

// Store instances sharing a path share a lock, so tests and long-lived
// processes in the same binary cannot interleave writes.
var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, accountsConfigDir, accountsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, accountsConfigDir))
	cfg.SetDefault(accountsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	accountsPath := cfg.GetString(accountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeAccountsPath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Store{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return domain.State{}, err
	}

	return fromSchema(file), nil
}

func (s *Store) Save(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSchema(toSchema(state))
}

func (s *Store) Update(ctx context.Context, fn func(state *domain.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	state := fromSchema(file)
	if err := fn(&state); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(toSchema(state))
}

func (s *Store) GetAccount(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return domain.Account{ID: id, Name: entry.Name, Icon: entry.Icon}, nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, domain.Account{ID: domain.AccountID(entry.ID), Name: entry.Name, Icon: entry.Icon})
	}

	return accounts, nil
}

func (s *Store) GetCredential(ctx context.Context, id domain.AccountID) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return domain.Credential{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return credentialFromSchema(entry), nil
		}
	}

	return domain.Credential{}, domain.ErrAccountNotFound
}

func (s *Store) PutCredential(ctx context.Context, id domain.AccountID, credential domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	// Credentials attach to existing accounts only. A refresh that finishes
	// after its account was removed lands here and is discarded.
	updated := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == string(id) {
			file.Accounts[i].AccessToken = credential.AccessToken
			file.Accounts[i].RefreshToken = credential.RefreshToken
			file.Accounts[i].ExpiresAt = 0
			if !credential.ExpiresAt.IsZero() {
				file.Accounts[i].ExpiresAt = credential.ExpiresAt.Unix()
			}
			updated = true
			break
		}
	}

	if !updated {
		return domain.ErrAccountNotFound
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

func (s *Store) DeleteCredential(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	cleared := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == string(id) {
			file.Accounts[i].AccessToken = ""
			file.Accounts[i].RefreshToken = ""
			file.Accounts[i].ExpiresAt = 0
			cleared = true
			break
		}
	}

	if !cleared {
		return domain.ErrAccountNotFound
	}

	return s.writeSchema(file)
}

func (s *Store) SetSelected(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	if id != "" {
		found := false
		for _, entry := range file.Accounts {
			if entry.ID == string(id) {
				found = true
				break
			}
		}
		if !found {
			return domain.ErrAccountNotFound
		}
	}

	file.SelectedAccountID = string(id)

	return s.writeSchema(file)
}

func (s *Store) GetSelected(ctx context.Context) (domain.AccountID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return "", err
	}

	return domain.AccountID(file.SelectedAccountID), nil
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := json.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.accountsPath), accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}
	data = append(data, '\n')

	tempFile, err := os.CreateTemp(filepath.Dir(s.accountsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp accounts file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}

	if err := os.Rename(tempName, s.accountsPath); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(s.accountsPath, accountsFileMode); err != nil {
		return fmt.Errorf("chmod accounts file: %w", err)
	}

	return nil
}
