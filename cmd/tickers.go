package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tj-capital/tvlsync/internal/ingest"
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Refresh the name-to-symbol reference table",
	Long: `Build the entity-name to ticker-symbol mapping from the chains
and protocols datasets and insert any new pairs. Existing symbols are
kept, not overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "tickers: migrate")
		}

		pairs, err := ingest.BuildTickers(ctx, initFetcher())
		if err != nil {
			return eris.Wrap(err, "tickers: build")
		}

		mapping := make(map[string]string, len(pairs))
		for _, p := range pairs {
			mapping[p.Name] = p.Symbol
		}

		n, err := st.UpsertTickers(ctx, mapping)
		if err != nil {
			return eris.Wrap(err, "tickers: upsert")
		}

		fmt.Printf("%d pairs, %d new\n", len(pairs), n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tickersCmd)
}
