package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/singlefault/mend/internal/archive"
	"github.com/singlefault/mend/internal/report"
)

var (
	flagFormat  string
	flagResults string
	flagRunID   string
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := filepath.Join(flagResults, "archive.db")
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no archive at %s", dbPath)
			}
			store, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			if flagRunID != "" {
				return report.GenerateRun(ctx, store, flagRunID, flagFormat, os.Stdout)
			}
			return report.Generate(ctx, store, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagResults, "results", "./results", "results directory holding archive.db")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().StringVar(&flagRunID, "run", "", "per-variant detail for one run ID")
	return cmd
}
