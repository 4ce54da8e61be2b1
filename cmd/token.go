package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	cmd.AddCommand(
		newTokenGetCmd(app),
		newTokenSetCmd(app),
		newTokenRefreshCmd(app),
		newTokenClearCmd(app),
	)

	return cmd
}

func newTokenGetCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a valid access token, refreshing it first when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd, app, accountID)
			if err != nil {
				return err
			}

			token, err := app.lifecycle.GetValidToken(cmd.Context(), id)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: selected account)")

	return cmd
}

func newTokenSetCmd(app *app) *cobra.Command {
	var accountID string
	var accessToken string
	var refreshToken string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a manually supplied credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd, app, accountID)
			if err != nil {
				return err
			}

			credential := domain.Credential{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    app.now().Add(expiresIn),
			}
			if err := app.lifecycle.SetCredential(cmd.Context(), id, credential); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored credential for account %s (expires %s)\n",
				id, credential.ExpiresAt.UTC().Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: selected account)")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "Token lifetime counted from now")
	_ = cmd.MarkFlagRequired("access-token")

	return cmd
}

func newTokenRefreshCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the account credential if it is inside the expiry margin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd, app, accountID)
			if err != nil {
				return err
			}

			needed, err := app.lifecycle.NeedsRefresh(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !needed {
				return reportNoRefresh(cmd, app, id)
			}

			if _, err := app.lifecycle.GetValidToken(cmd.Context(), id); err != nil {
				return err
			}

			credential, err := app.store.GetCredential(cmd.Context(), id)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "credential refreshed (expires %s)\n",
				credential.ExpiresAt.UTC().Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: selected account)")

	return cmd
}

func reportNoRefresh(cmd *cobra.Command, app *app, id domain.AccountID) error {
	credential, err := app.store.GetCredential(cmd.Context(), id)
	if err != nil {
		return err
	}

	switch {
	case credential.IsZero():
		return fmt.Errorf("%w: account %s (run `ca import --account %s` or `ca token set`)", domain.ErrNoCredential, id, id)
	case !credential.Refreshable():
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s holds a manual token; nothing to refresh\n", id)
		return err
	default:
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "credential still valid (expires %s)\n",
			credential.ExpiresAt.UTC().Format(time.RFC3339))
		return err
	}
}

func newTokenClearCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credential but keep the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := resolveAccountID(cmd, app, accountID)
			if err != nil {
				return err
			}

			if err := app.lifecycle.ClearCredential(cmd.Context(), id); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared credential for account %s\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: selected account)")

	return cmd
}
