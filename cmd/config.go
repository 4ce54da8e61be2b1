package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the CLI config file",
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

type configFile struct {
	Accounts struct {
		Path string `toml:"path"`
	} `toml:"accounts"`
	Refresh struct {
		Interval string `toml:"interval"`
		Timeout  string `toml:"timeout"`
	} `toml:"refresh"`
	Import struct {
		CredentialsPath string `toml:"credentials_path"`
	} `toml:"import"`
}

func configFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, ".claude", "ca.toml"), nil
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file populated with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists at %s", path)
			}

			configDir := filepath.Dir(path)

			var cfg configFile
			cfg.Accounts.Path = filepath.Join(configDir, "accounts.json")
			cfg.Refresh.Interval = application.DefaultRefreshInterval.String()
			cfg.Refresh.Timeout = defaultRefreshTimeout.String()
			cfg.Import.CredentialsPath = filepath.Join(configDir, ".credentials.json")

			payload, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			if err := os.MkdirAll(configDir, 0o700); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, payload, 0o644); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
