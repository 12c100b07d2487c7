package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/skinlab/internal/usecase/prompt"
)

func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt <questionnaire.json|->",
		Short: "Render the analysis prompt for a questionnaire without calling any service",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrompt,
	}
	cmd.Flags().Int("max-length", prompt.DefaultMaxLength, "Maximum rendered prompt length")
	return cmd
}

func runPrompt(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(filepath.Clean(args[0]))
	}
	if err != nil {
		return fmt.Errorf("read questionnaire: %w", err)
	}

	maxLength, _ := cmd.Flags().GetInt("max-length")
	rendered, err := prompt.New(maxLength).Build(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
