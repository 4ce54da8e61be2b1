package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/claude-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential status for accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := loadStatuses(cmd, app, accountID)
			if err != nil {
				return err
			}

			return writeStatusesOutput(cmd, app, statuses, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: all accounts)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func loadStatuses(cmd *cobra.Command, app *app, accountID string) ([]application.Status, error) {
	statuses, err := app.lifecycle.Statuses(cmd.Context())
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return statuses, nil
	}

	for _, status := range statuses {
		if status.Account.ID == domain.AccountID(accountID) {
			return []application.Status{status}, nil
		}
	}

	return nil, fmt.Errorf("get account by id: %w", domain.ErrAccountNotFound)
}

func writeStatusesOutput(cmd *cobra.Command, app *app, statuses []application.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
