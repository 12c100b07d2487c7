package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "skinlab",
		Short:         "Skin analysis and skincare routine service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env", "", "Config environment (default: $ENV or local)")

	rootCmd.AddCommand(
		newServeCommand(),
		newSearchCommand(),
		newPromptCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
