// Package commands implements the wren CLI.
package commands

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wren",
		Short:         "Command-dispatch framework for chat bots",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "wren.yaml", "path to the config file")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	root.AddCommand(newRunCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}
