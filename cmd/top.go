package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tj-capital/tvlsync/internal/analytics"
	"github.com/tj-capital/tvlsync/internal/model"
)

// np prints measures with thousands grouping for console output.
var np = message.NewPrinter(language.English)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Top gainers per size bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, _ := cmd.Flags().GetString("table")
		date, _ := cmd.Flags().GetString("date")
		lookback, _ := cmd.Flags().GetInt("lookback")
		topN, _ := cmd.Flags().GetInt("top")
		out, _ := cmd.Flags().GetString("out")

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
			return eris.Wrapf(err, "top: load %s", table)
		}
		if date == "" && len(series.Dates) > 0 {
			date = series.Dates[len(series.Dates)-1]
		}

		gainers, err := analytics.TopGainers(series, date, lookback, bands, topN)
		if err != nil {
			return err
		}
		snap, err := analytics.SnapshotAt(series, date)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s, %d periods back, top %d per bucket\n", table, date, lookback, topN)
		for _, b := range bands {
			fmt.Printf("\n%s\n", b.Name)
			for _, g := range gainers[b.Name] {
				np.Printf("  %-28s %+9.2f%%  %.0f\n", g.Name, g.Pct, snap.Values[g.Name])
			}
		}

		if out != "" {
			if err := writeGainersXLSX(out, bands, gainers, snap); err != nil {
				return eris.Wrapf(err, "top: export %s", out)
			}
			fmt.Printf("\nWrote %s\n", out)
		}
		return nil
	},
}

// writeGainersXLSX exports one sheet per bucket.
func writeGainersXLSX(path string, bands []analytics.Band, gainers map[string][]analytics.Gainer, snap *model.Snapshot) error {
	f := xlsx.NewFile()
	for _, b := range bands {
		sheet, err := f.AddSheet(b.Name)
		if err != nil {
			return err
		}
		header := sheet.AddRow()
		header.AddCell().Value = "name"
		header.AddCell().Value = "pct_change"
		header.AddCell().Value = "measure"

		for _, g := range gainers[b.Name] {
			row := sheet.AddRow()
			row.AddCell().Value = g.Name
			row.AddCell().SetFloat(g.Pct)
			row.AddCell().SetFloat(snap.Values[g.Name])
		}
	}
	return f.Save(path)
}

func init() {
	topCmd.Flags().String("table", "chains", "wide table to analyze")
	topCmd.Flags().String("date", "", "as-of date (default: latest)")
	topCmd.Flags().Int("lookback", 1, "rows back to the reference date")
	topCmd.Flags().Int("top", 5, "gainers kept per bucket")
	topCmd.Flags().String("out", "", "write results to an .xlsx file")
	rootCmd.AddCommand(topCmd)
}
