package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lfg",
		Short:         "LFG coordinator: run and inspect looking-for-group sessions",
		Long:          "lfg coordinates looking-for-group sessions for chat communities: it tracks rosters and capacity, deletes idle sessions, fans announcements out to other communities and persists everything across restarts.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(os.Stderr)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newStateCmd(app),
	)

	return rootCmd
}
