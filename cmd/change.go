package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tj-capital/tvlsync/internal/analytics"
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Percentage change per entity over a lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, _ := cmd.Flags().GetString("table")
		date, _ := cmd.Flags().GetString("date")
		lookback, _ := cmd.Flags().GetInt("lookback")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		series, err := st.LoadSeries(ctx, table)
		if err != nil {
			return eris.Wrapf(err, "change: load %s", table)
		}
		if date == "" && len(series.Dates) > 0 {
			date = series.Dates[len(series.Dates)-1]
		}

		changes, err := analytics.PctChange(series, date, lookback)
		if err != nil {
			return err
		}

		type entry struct {
			name string
			pct  float64
		}
		entries := make([]entry, 0, len(changes))
		for name, pct := range changes {
			if math.IsNaN(pct) {
				continue
			}
			entries = append(entries, entry{name, pct})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].pct > entries[j].pct })

		fmt.Printf("%s %s, %d periods back\n", table, date, lookback)
		for _, e := range entries {
			fmt.Printf("%-28s %+9.2f%%\n", e.name, e.pct)
		}
		return nil
	},
}

func init() {
	changeCmd.Flags().String("table", "chains", "wide table to analyze")
	changeCmd.Flags().String("date", "", "as-of date (default: latest)")
	changeCmd.Flags().Int("lookback", 1, "rows back to the reference date")
	rootCmd.AddCommand(changeCmd)
}
