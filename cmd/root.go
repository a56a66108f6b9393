package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aurora",
		Short:         "Aurora: a hands-free voice assistant",
		Long:          "Aurora listens for a wake phrase, holds a spoken conversation through the OpenAI Realtime API, and runs household tools like timers, lights, and lists by voice.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newDevicesCmd(),
	)

	return rootCmd
}
