package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blinovmaxim/TgBotStore/internal/feed"
)

// newParseCmd creates the 'parse' subcommand. It parses the local feed copy
// once and prints admission statistics, which is the quickest way to check a
// supplier format change before letting the service loose on it.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Parses the local feed copy and reports admission statistics",
		RunE:  runParse,
	}
}

func runParse(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	parser := feed.NewParser(cfg.Catalog.ExcludeTerm, logger.Named("parser"))
	products, stats, err := parser.Parse(cfg.Feed.LocalPath)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	inStock := 0
	for _, p := range products {
		if p.InStock() {
			inStock++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rows: %d\n", stats.TotalRows)
	fmt.Fprintf(cmd.OutOrStdout(), "admitted: %d\n", stats.Admitted)
	fmt.Fprintf(cmd.OutOrStdout(), "skipped (empty name): %d\n", stats.EmptyName)
	fmt.Fprintf(cmd.OutOrStdout(), "skipped (excluded): %d\n", stats.Excluded)
	fmt.Fprintf(cmd.OutOrStdout(), "in stock: %d\n", inStock)
	return nil
}
