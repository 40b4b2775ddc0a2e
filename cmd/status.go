package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tj-capital/tvlsync/internal/ingest"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-table history and recent ingest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Printf("%-14s %8s %9s  %s\n", "TABLE", "ROWS", "ENTITIES", "LAST DATE")
		for _, d := range ingest.DefaultRegistry().All() {
			ts, err := st.TableStatus(ctx, d.Table())
			if err != nil {
				fmt.Printf("%-14s (no table)\n", d.Table())
				continue
			}
			fmt.Printf("%-14s %8d %9d  %s\n", ts.Table, ts.Rows, ts.Entities, ts.LastDate)
		}

		runs, err := st.LastRuns(ctx, 10)
		if err != nil || len(runs) == 0 {
			return nil
		}

		fmt.Printf("\n%-14s %-9s %-11s %-8s %s\n", "DATASET", "STATUS", "ROW DATE", "+COLS", "STARTED")
		for _, r := range runs {
			fmt.Printf("%-14s %-9s %-11s %-8d %s\n",
				r.Dataset, r.Status, r.RowDate, r.ColumnsAdded,
				r.StartedAt.Format(time.RFC3339))
			if r.Error != "" {
				fmt.Printf("    %s\n", r.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
