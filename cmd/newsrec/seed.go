package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the article CSV into an empty catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		out, err := a.seeder().Seed(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Seed finished", zap.Any("outcome", out))

		w := cmd.OutOrStdout()
		switch {
		case out.AlreadySeeded:
			fmt.Fprintln(w, "catalog already seeded, nothing to do")
		case out.UsedFallback:
			fmt.Fprintf(w, "%s not found, inserted fallback article\n", cfg.Seed.CSVPath)
		default:
			fmt.Fprintf(w, "inserted %d articles, skipped %d incomplete rows\n", out.Inserted, out.Skipped)
		}
		return nil
	},
}
