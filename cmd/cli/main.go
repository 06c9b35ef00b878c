package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "budget-review",
		Short:         "Analyze municipal budget spreadsheets from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "config.yaml", "Path to the YAML config file")

	root.AddCommand(NewAnalyzeCmd())
	root.AddCommand(NewRowsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
