// Package bootstrap loads historical CSV exports into fresh wide
// tables. It is a one-time setup path; steady-state ingest never reads
// or writes these files.
package bootstrap

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tj-capital/tvlsync/internal/norm"
	"github.com/tj-capital/tvlsync/internal/store"
)

// Table is one parsed CSV export, ready for bulk load. Columns holds
// the normalized non-date headers in file order; each row is aligned
// as [date, Columns...].
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// dropCols are source artifacts never loaded into a wide table.
var dropCols = map[string]bool{
	"timestamp":        true,
	"totalcirculating": true,
}

// TableName derives the target table from a CSV path: the file stem
// with the export's "_upd" suffix removed.
func TableName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return norm.Name(strings.TrimSuffix(stem, "_upd"))
}

// ReadFile parses one CSV export.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bootstrap: open %s", path)
	}
	defer f.Close()

	tbl, err := ReadWide(f, TableName(path))
	if err != nil {
		return nil, eris.Wrapf(err, "bootstrap: parse %s", path)
	}
	return tbl, nil
}

// ReadWide parses a wide CSV: one date column plus one column per
// entity. Headers are normalized, empty cells become NULL, and a
// repeated date keeps the last row seen.
func ReadWide(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	header = norm.Names(header)

	dateIdx, err := norm.DateColumn(header)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, len(header))
	cols := make([]string, 0, len(header))
	for i, h := range header {
		if i == dateIdx || h == "" || dropCols[h] {
			continue
		}
		cols = append(cols, h)
		keep = append(keep, i)
	}

	tbl := &Table{Name: name, Columns: cols}
	rowIdx := map[string]int{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read line %d", line+1)
		}
		line++

		if dateIdx >= len(rec) {
			return nil, eris.Errorf("line %d: missing date field", line)
		}
		parsed, err := norm.ParseDay(rec[dateIdx])
		if err != nil {
			return nil, eris.Wrapf(err, "line %d", line)
		}
		day := norm.Day(parsed)

		row := make([]any, 0, len(cols)+1)
		row = append(row, day)
		for _, i := range keep {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			if cell == "" {
				row = append(row, nil)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "line %d: column %s", line, header[i])
			}
			row = append(row, v)
		}

		// Duplicate dates: last row wins.
		if at, ok := rowIdx[day]; ok {
			tbl.Rows[at] = row
			continue
		}
		rowIdx[day] = len(tbl.Rows)
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// Load drops and recreates the target table, then bulk-loads the rows.
func Load(ctx context.Context, st store.Store, tbl *Table) (int64, error) {
	if err := st.CreateWideTable(ctx, tbl.Name, tbl.Columns); err != nil {
		return 0, err
	}
	columns := append([]string{"date"}, tbl.Columns...)
	return st.BulkLoad(ctx, tbl.Name, columns, tbl.Rows)
}

// LoadDir loads every *_upd.csv export in dir, one table per file.
func LoadDir(ctx context.Context, st store.Store, dir string) (map[string]int64, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*_upd.csv"))
	if err != nil {
		return nil, eris.Wrapf(err, "bootstrap: glob %s", dir)
	}
	if len(paths) == 0 {
		return nil, eris.Errorf("bootstrap: no *_upd.csv files in %s", dir)
	}

	loaded := make(map[string]int64, len(paths))
	for _, path := range paths {
		tbl, err := ReadFile(path)
		if err != nil {
			return loaded, err
		}
		n, err := Load(ctx, st, tbl)
		if err != nil {
			return loaded, eris.Wrapf(err, "bootstrap: load %s", tbl.Name)
		}
		zap.L().Info("table bootstrapped",
			zap.String("table", tbl.Name),
			zap.Int64("rows", n),
			zap.Int("entities", len(tbl.Columns)))
		loaded[tbl.Name] = n
	}
	return loaded, nil
}
