package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(app),
		newAccountListCmd(app),
		newAccountUpdateCmd(app),
		newAccountRemoveCmd(app),
		newAccountSelectCmd(app),
	)

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.registry.AddAccount(cmd.Context(), args[0], icon)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added account %s (%s)\n", account.Name, account.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "Display icon for the account")

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.registry.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			selected, hasSelection, err := app.registry.SelectedAccount(cmd.Context())
			if err != nil {
				return err
			}

			for _, account := range accounts {
				marker := " "
				if hasSelection && account.ID == selected.ID {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, account.ID, account.Name)
			}

			return nil
		},
	}
}

func newAccountUpdateCmd(app *app) *cobra.Command {
	var name string
	var icon string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename an account or change its icon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := application.AccountUpdate{}
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("icon") {
				update.Icon = &icon
			}
			if update.Name == nil && update.Icon == nil {
				return errors.New("nothing to update; pass --name or --icon")
			}

			account, err := app.registry.UpdateAccount(cmd.Context(), domain.AccountID(args[0]), update)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated account %s (%s)\n", account.Name, account.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New account name")
	cmd.Flags().StringVar(&icon, "icon", "", "New display icon")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account and its credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(args[0])
			if err := app.registry.RemoveAccount(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed account %s\n", id)
			return err
		},
	}
}

func newAccountSelectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Make an account the default for other commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(args[0])
			if err := app.registry.SelectAccount(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "selected account %s\n", id)
			return err
		},
	}
}

// resolveAccountID turns the --account flag into an account ID, falling back
// to the selected account when the flag is empty.
func resolveAccountID(cmd *cobra.Command, app *app, flagValue string) (domain.AccountID, error) {
	if flagValue != "" {
		account, err := app.registry.Account(cmd.Context(), domain.AccountID(flagValue))
		if err != nil {
			return "", err
		}
		return account.ID, nil
	}

	selected, ok, err := app.registry.SelectedAccount(cmd.Context())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no account selected; pass --account or run `ca account select`")
	}

	return selected.ID, nil
}
