package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ca",
		Short:         "Claude Accounts CLI (ca): manage OAuth credentials for multiple accounts",
		Long:          "ca (Claude Accounts CLI) stores OAuth credentials for several Claude accounts, refreshes access tokens before they expire, imports Claude Code logins, and shows credential status and usage limits from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newTokenCmd(app),
		newImportCmd(app),
		newStatusCmd(app),
		newUsageCmd(app),
		newWatchCmd(app),
		newConfigCmd(),
	)

	return rootCmd
}
