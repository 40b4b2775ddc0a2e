package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tj-capital/tvlsync/internal/ingest"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch today's snapshots and upsert them",
	Long: `Run the daily fetch-transform-upsert cycle.

Each dataset commits independently, in registry order. The first
failure aborts the batch; re-running the whole batch is the recovery
mechanism.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		datasetsStr, _ := cmd.Flags().GetString("datasets")
		opts := ingest.RunOpts{Datasets: splitList(datasetsStr)}

		engine := ingest.NewEngine(st, initFetcher(), ingest.DefaultRegistry())

		zap.L().Info("starting sync", zap.Strings("datasets", opts.Datasets))

		results, err := engine.Run(ctx, opts)
		for _, res := range results {
			fmt.Printf("%-14s %s  +%d columns\n", res.Dataset, res.Date, res.ColumnsAdded)
		}
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Println("Sync complete")
		return nil
	},
}

func init() {
	syncCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., chains,dexs)")
	rootCmd.AddCommand(syncCmd)
}
