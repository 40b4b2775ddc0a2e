package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tj-capital/tvlsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tvlsync",
	Short: "Daily TVL and volume history for chains, protocols, stablecoins and DEXs",
	Long:  "Fetches daily TVL and volume snapshots from DeFiLlama, upserts them into date-keyed wide tables that grow a column per entity, and answers bucket, change and top-gainer queries over the accumulated history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
