package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meeting",
		Short:         "Multi-role architecture review meetings",
		Long:          "meeting runs multi-role architecture review meetings against a language model, records every step as an event log and writes ADR, TASKS and RISKS artifacts at the end.",
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
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newResumeCmd(app),
		newReplayCmd(app),
		newMessageCmd(app),
		newStatusCmd(app),
		newMeetingsCmd(app),
		newRunsCmd(app),
		newServeCmd(app),
		newAuthCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}
