package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

var (
	queryLimit int
	querySeed  bool
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Build the index and print recommendations for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.bootstrap(ctx, querySeed); err != nil {
			return err
		}

		q := strings.Join(args, " ")
		results, err := a.catalog.Search(ctx, q, queryLimit)
		if err != nil {
			return err
		}
		logger.Debug("Query answered", zap.String("query", q), zap.Int("results", len(results)))

		if queryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 0, "number of recommendations (default from config)")
	queryCmd.Flags().BoolVar(&querySeed, "seed", false, "seed an empty catalog before building the index")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print results as JSON")
}

func printResults(w io.Writer, results []article.Scored) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching articles")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. [%.4f] %s (%s, id %d)\n", i+1, r.Score, r.Heading, r.Category, r.ID)
	}
}
