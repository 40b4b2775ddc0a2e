package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tj-capital/tvlsync/internal/analytics"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Group a table's entities into size buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, _ := cmd.Flags().GetString("table")
		date, _ := cmd.Flags().GetString("date")

		th, err := analytics.LoadThresholds()
		if err != nil {
			return err
		}
		bands, err := th.For(table)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		series, err := st.LoadSeries(ctx, table)
		if err != nil {
			return eris.Wrapf(err, "buckets: load %s", table)
		}
		if date == "" && len(series.Dates) > 0 {
			date = series.Dates[len(series.Dates)-1]
		}

		snap, err := analytics.SnapshotAt(series, date)
		if err != nil {
			return err
		}

		groups := analytics.BucketSnapshot(snap, bands)
		fmt.Printf("%s as of %s\n", table, date)
		for _, b := range bands {
			members := groups[b.Name]
			fmt.Printf("%-8s %4d  %s\n", b.Name, len(members), strings.Join(members, ", "))
		}
		return nil
	},
}

func init() {
	bucketsCmd.Flags().String("table", "chains", "wide table to analyze")
	bucketsCmd.Flags().String("date", "", "as-of date (default: latest)")
	rootCmd.AddCommand(bucketsCmd)
}
