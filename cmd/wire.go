package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/adapters/anthropic"
	"github.com/bnema/claude-accounts-cli/internal/adapters/claudecode"
	statusadapter "github.com/bnema/claude-accounts-cli/internal/adapters/render/status"
	filestore "github.com/bnema/claude-accounts-cli/internal/adapters/store/file"
	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/bnema/claude-accounts-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	refreshIntervalKey = "refresh.interval"
	refreshTimeoutKey  = "refresh.timeout"
	importPathKey      = "import.credentials_path"

	defaultRefreshTimeout = 20 * time.Second
)

type app struct {
	store           ports.CredentialStore
	registry        *application.Registry
	lifecycle       *application.Lifecycle
	events          *application.Events
	refreshInterval time.Duration
	importPath      string
	statusRenderer  func([]application.Status, statusadapter.RenderOptions) (string, error)
	usageBaseURL    string
	httpClient      *http.Client
	now             func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	// Defaults must land before NewStore reads the config file, so values
	// from ~/.claude/ca.toml override them.
	cfg := viper.New()
	cfg.SetDefault(refreshIntervalKey, application.DefaultRefreshInterval)
	cfg.SetDefault(refreshTimeoutKey, defaultRefreshTimeout)
	cfg.SetDefault(importPathKey, filepath.Join(homeDir, ".claude", ".credentials.json"))

	store, err := filestore.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire credential store: %w", err)
	}

	events := application.NewEvents()
	clock := ports.SystemClock{}
	refresher := anthropic.RefreshClient{
		TokenURL:       envOrDefault("CA_OAUTH_TOKEN_URL", anthropic.DefaultTokenURL),
		RequestTimeout: cfg.GetDuration(refreshTimeoutKey),
	}
	importPath := cfg.GetString(importPathKey)
	importer := claudecode.NewImporter(importPath)

	return &app{
		store:           store,
		registry:        application.NewRegistry(store, events, clock),
		lifecycle:       application.NewLifecycle(store, refresher, importer, events, clock),
		events:          events,
		refreshInterval: cfg.GetDuration(refreshIntervalKey),
		importPath:      importPath,
		statusRenderer:  statusadapter.Render,
		usageBaseURL:    envOrDefault("CA_USAGE_BASE_URL", anthropic.DefaultUsageBaseURL),
		httpClient:      http.DefaultClient,
		now:             time.Now,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
