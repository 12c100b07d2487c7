package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
	logpkg "github.com/kailas-cloud/skinlab/internal/logger"
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a product search against the catalog and print the JSON response",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().Float64("threshold", 0, "Similarity threshold (default from config)")
	cmd.Flags().Int("count", 0, "Maximum number of products (default from config)")
	cmd.Flags().Duration("timeout", time.Minute, "Overall timeout")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if err := product.ValidateQuery(query); err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if threshold == 0 {
		threshold = a.cfg.Search.MatchThreshold
	}
	count, _ := cmd.Flags().GetInt("count")
	if count == 0 {
		count = a.cfg.Search.MatchCount
	}

	ctx = logpkg.ContextWithLogger(ctx, a.logger)
	resp := a.search.Search(ctx, query, threshold, count)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
