package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the current Claude Code login into an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd, app, accountID)
			if err != nil {
				return err
			}

			imported, err := app.lifecycle.Import(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !imported {
				return fmt.Errorf("no Claude Code credentials found at %s (is Claude Code logged in?)", app.importPath)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported Claude Code credentials into account %s\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: selected account)")

	return cmd
}
