package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/claude-accounts-cli/internal/adapters/anthropic"
	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newUsageCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Fetch and display account usage limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUsageFetch(cmd, app, accountID, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: all accounts)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func runUsageFetch(cmd *cobra.Command, app *app, accountID string, asJSON bool) error {
	statuses, err := loadStatuses(cmd, app, accountID)
	if err != nil {
		return err
	}

	client := anthropic.UsageClient{BaseURL: app.usageBaseURL, HTTPClient: app.httpClient}
	fetched := make(map[domain.AccountID]anthropic.Usage, len(statuses))

	fetch := func(ctx context.Context) error {
		for _, status := range statuses {
			if status.State == application.CredentialStateNone {
				continue
			}

			usage, err := fetchAccountUsage(ctx, app, client, status.Account.ID)
			if err != nil {
				return err
			}
			fetched[status.Account.ID] = usage
		}

		return nil
	}

	if asJSON {
		if err := fetch(cmd.Context()); err != nil {
			return err
		}
	} else {
		if err := runUsageFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), fetch); err != nil {
			return err
		}
	}

	// Re-read after fetching: resolving tokens may have refreshed credentials,
	// and the rendered expiry should reflect that.
	updated, err := loadStatuses(cmd, app, accountID)
	if err != nil {
		return err
	}
	for i := range updated {
		usage, ok := fetched[updated[i].Account.ID]
		if !ok {
			continue
		}
		updated[i].FiveHour = usageWindow(usage.FiveHour)
		updated[i].SevenDay = usageWindow(usage.SevenDay)
	}

	return writeStatusesOutput(cmd, app, updated, asJSON)
}

func fetchAccountUsage(ctx context.Context, app *app, client anthropic.UsageClient, id domain.AccountID) (anthropic.Usage, error) {
	token, err := app.lifecycle.GetValidToken(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshUnauthorized) || errors.Is(err, domain.ErrCredentialExpired) {
			return anthropic.Usage{}, fmt.Errorf("account %s: session expired, re-import with `ca import --account %s`", id, id)
		}
		return anthropic.Usage{}, fmt.Errorf("account %s: resolve access token: %w", id, err)
	}

	usage, err := client.Fetch(ctx, token)
	if err != nil {
		if errors.Is(err, anthropic.ErrUsageSessionExpired) {
			return anthropic.Usage{}, fmt.Errorf("account %s: session expired, re-import with `ca import --account %s`", id, id)
		}
		return anthropic.Usage{}, fmt.Errorf("account %s: fetch usage: %w", id, err)
	}

	return usage, nil
}

func usageWindow(window *anthropic.UsageWindow) *application.UsageWindow {
	if window == nil {
		return nil
	}

	return &application.UsageWindow{Utilization: window.Utilization, ResetsAt: window.ResetsAt}
}
