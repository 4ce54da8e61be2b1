package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/bnema/claude-accounts-cli/internal/domain"
	"github.com/bnema/claude-accounts-cli/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *app) *cobra.Command {
	var accountID string
	var syncExternal bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep credentials fresh until interrupted",
		Long:  "watch runs the refresh scheduler in the foreground, renewing any account credential that enters its expiry margin. With --sync-external it also re-imports the Claude Code credentials file into one account whenever that file changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New()
			if verbose {
				log = log.Level(zerolog.DebugLevel)
			} else {
				log = log.Level(zerolog.InfoLevel)
			}

			var syncID domain.AccountID
			if syncExternal {
				id, err := resolveAccountID(cmd, app, accountID)
				if err != nil {
					return err
				}
				syncID = id
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := application.NewScheduler(app.registry, app.lifecycle, app.refreshInterval, log)
			scheduler.Start(ctx)
			defer scheduler.Stop()

			if syncExternal {
				watcher := application.NewImportWatcher(app.importPath, syncID, app.lifecycle, log)
				watcher.Start(ctx)
				defer watcher.Stop()
				log.Info().Str("path", app.importPath).Str("account", string(syncID)).Msg("syncing external credentials")
			}

			events, cancel := app.events.Subscribe(16)
			defer cancel()

			log.Info().Dur("interval", app.refreshInterval).Msg("watching, press ctrl-c to stop")

			for {
				select {
				case <-ctx.Done():
					log.Info().Msg("shutting down")
					return nil
				case event, ok := <-events:
					if !ok {
						<-ctx.Done()
						log.Info().Msg("shutting down")
						return nil
					}
					log.Debug().
						Str("kind", string(event.Kind)).
						Str("account", string(event.AccountID)).
						Time("at", event.At).
						Msg("event")
				}
			}
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account receiving external imports (default: selected account)")
	cmd.Flags().BoolVar(&syncExternal, "sync-external", false, "Re-import the Claude Code credentials file when it changes")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log every account and credential event")

	return cmd
}
