package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tj-capital/tvlsync/internal/bootstrap"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Bootstrap wide tables from historical CSV exports",
	Long: `Create the wide tables from *_upd.csv exports and bulk-load
their history. Existing tables with the same names are dropped first.
This is a one-time path; daily sync never reads these files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "setup: migrate")
		}

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Bootstrap.CSVDir
		}
		tablesStr, _ := cmd.Flags().GetString("tables")
		only := map[string]bool{}
		for _, t := range splitList(tablesStr) {
			only[t] = true
		}

		if len(only) == 0 {
			loaded, err := bootstrap.LoadDir(ctx, st, dir)
			for table, rows := range loaded {
				fmt.Printf("%-14s %d rows\n", table, rows)
			}
			if err != nil {
				return eris.Wrap(err, "setup")
			}
			return nil
		}

		paths, err := filepath.Glob(filepath.Join(dir, "*_upd.csv"))
		if err != nil {
			return eris.Wrapf(err, "setup: glob %s", dir)
		}
		matched := 0
		for _, path := range paths {
			if !only[bootstrap.TableName(path)] {
				continue
			}
			tbl, err := bootstrap.ReadFile(path)
			if err != nil {
				return eris.Wrap(err, "setup")
			}
			n, err := bootstrap.Load(ctx, st, tbl)
			if err != nil {
				return eris.Wrapf(err, "setup: load %s", tbl.Name)
			}
			fmt.Printf("%-14s %d rows\n", tbl.Name, n)
			matched++
		}
		if matched == 0 {
			return eris.Errorf("setup: no exports in %s match --tables", dir)
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().String("dir", "", "directory holding *_upd.csv exports (default from config)")
	setupCmd.Flags().String("tables", "", "comma-separated table names to load (default all)")
	rootCmd.AddCommand(setupCmd)
}
