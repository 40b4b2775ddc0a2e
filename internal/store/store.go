// Package store persists wide TVL tables in Postgres or SQLite: one row
// per calendar day, one nullable numeric column per entity ever
// observed. The column set only grows; at most one row exists per date.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/tj-capital/tvlsync/internal/model"
)

// Store is the persistence interface for wide tables.
type Store interface {
	// Schema catalog
	Columns(ctx context.Context, table string) ([]string, error)
	AddColumn(ctx context.Context, table, column string) error
	EnsureWideTable(ctx context.Context, table string) error
	CreateWideTable(ctx context.Context, table string, columns []string) error

	// Write path
	WriteRow(ctx context.Context, table string, row model.Row) error
	BulkLoad(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Read path
	LoadSeries(ctx context.Context, table string) (*model.Series, error)
	TableStatus(ctx context.Context, table string) (*TableStatus, error)

	// Reference data
	UpsertTickers(ctx context.Context, symbols map[string]string) (int64, error)

	// Ingest log
	StartRun(ctx context.Context, dataset, table string) (string, error)
	CompleteRun(ctx context.Context, runID, rowDate string, columnsAdded int) error
	FailRun(ctx context.Context, runID string, cause error) error
	LastRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// TableStatus summarizes one wide table for the status command.
type TableStatus struct {
	Table    string `json:"table"`
	Rows     int64  `json:"rows"`
	Entities int    `json:"entities"`
	LastDate string `json:"last_date,omitempty"`
}

// SchemaError reports a failed schema-catalog read or alteration.
// Fatal for the dataset being upserted; already-added columns are not
// rolled back (additive-only columns are inert when empty).
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("store: schema change failed for %s.%s: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("store: schema read failed for %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ReconcileSchema brings the table's column set up to date with the
// row's keys: every key that is neither reserved nor already a column
// becomes a new nullable numeric column. Returns the added column
// names. Order among new columns carries no contract; they are added
// sorted so runs are deterministic.
func ReconcileSchema(ctx context.Context, s Store, table string, keys []string) ([]string, error) {
	existing, err := s.Columns(ctx, table)
	if err != nil {
		return nil, &SchemaError{Table: table, Err: err}
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c] = true
	}

	var added []string
	for _, k := range keys {
		if k == model.DateKey || k == model.TotalKey || have[k] {
			continue
		}
		have[k] = true
		added = append(added, k)
	}
	sort.Strings(added)

	for _, col := range added {
		if err := s.AddColumn(ctx, table, col); err != nil {
			return nil, &SchemaError{Table: table, Column: col, Err: err}
		}
	}
	return added, nil
}
