package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

// SQLite implements Store on a local database file, for running the
// pipeline without a Postgres instance. Dates and timestamps are stored
// as ISO text; measures as REAL.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. ":memory:" gives
// an ephemeral store.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "tvlsync.db"
	}
	dbh, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %s", path)
	}
	// The wide-table write path is single-writer; one connection avoids
	// SQLITE_BUSY on concurrent statements from the same process.
	dbh.SetMaxOpenConns(1)
	if err := dbh.Ping(); err != nil {
		dbh.Close()
		return nil, eris.Wrapf(err, "sqlite: ping %s", path)
	}
	return &SQLite{db: dbh}, nil
}

// sqlIdent quotes an identifier for SQLite.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlIdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = sqlIdent(c)
	}
	return strings.Join(quoted, ", ")
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingest_log (
	id            TEXT PRIMARY KEY,
	dataset       TEXT NOT NULL,
	table_name    TEXT NOT NULL,
	row_date      TEXT,
	columns_added INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'running',
	error         TEXT,
	started_at    TEXT NOT NULL,
	finished_at   TEXT
);

CREATE TABLE IF NOT EXISTS tickers (
	symbol TEXT PRIMARY KEY,
	name   TEXT
);`

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLite) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM pragma_table_info(?) ORDER BY name`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read columns of %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan column of %s", table)
		}
		if c == model.DateKey || c == model.TotalKey {
			continue
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: read columns of %s", table)
	}
	return cols, nil
}

func (s *SQLite) AddColumn(ctx context.Context, table, column string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s REAL", sqlIdent(table), sqlIdent(column))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "sqlite: add column %s.%s", table, column)
	}
	return nil
}

func (s *SQLite) EnsureWideTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY)",
		sqlIdent(table), sqlIdent(model.DateKey))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "sqlite: ensure table %s", table)
	}
	return nil
}

func (s *SQLite) CreateWideTable(ctx context.Context, table string, columns []string) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(table)); err != nil {
		return eris.Wrapf(err, "sqlite: drop table %s", table)
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, sqlIdent(model.DateKey)+" TEXT PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, sqlIdent(col)+" REAL")
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "sqlite: create table %s", table)
	}
	return nil
}

func (s *SQLite) WriteRow(ctx context.Context, table string, row model.Row) error {
	if row.Date() == "" {
		return eris.Errorf("sqlite: row for %s has no date key", table)
	}

	vals, err := norm.Values(row)
	if err != nil {
		return eris.Wrapf(err, "sqlite: normalize row for %s", table)
	}

	keys := row.Keys()
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	var updates []string
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = vals[k]
		if k != model.DateKey {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", sqlIdent(k), sqlIdent(k)))
		}
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		sqlIdent(table),
		sqlIdentList(keys),
		strings.Join(placeholders, ", "),
		sqlIdent(model.DateKey),
		conflict,
	)

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert row into %s", table)
	}
	return nil
}

func (s *SQLite) BulkLoad(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin load into %s", table)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(table), sqlIdentList(columns), placeholders))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare load into %s", table)
	}
	defer stmt.Close()

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: load row into %s", table)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit load into %s", table)
	}
	return n, nil
}

func (s *SQLite) LoadSeries(ctx context.Context, table string) (*model.Series, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		sqlIdent(table), sqlIdent(model.DateKey)))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load series from %s", table)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: series columns of %s", table)
	}

	series := &model.Series{Table: table, Values: make(map[string][]float64)}
	for _, name := range names {
		if name == model.DateKey || name == model.TotalKey {
			continue
		}
		series.Cols = append(series.Cols, name)
	}

	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan series row from %s", table)
		}
		for i, name := range names {
			switch name {
			case model.DateKey:
				series.Dates = append(series.Dates, textValue(vals[i]))
			case model.TotalKey:
			default:
				series.Values[name] = append(series.Values[name], floatOrNaN(vals[i]))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: load series from %s", table)
	}
	return series, nil
}

func (s *SQLite) TableStatus(ctx context.Context, table string) (*TableStatus, error) {
	var count int64
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*), max(%s) FROM %s",
		sqlIdent(model.DateKey), sqlIdent(table))).Scan(&count, &last)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: status of %s", table)
	}

	cols, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	status := &TableStatus{Table: table, Rows: count, Entities: len(cols)}
	if last.Valid {
		status.LastDate = last.String
	}
	return status, nil
}

func (s *SQLite) UpsertTickers(ctx context.Context, symbols map[string]string) (int64, error) {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var inserted int64
	for _, name := range names {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO tickers (symbol, name) VALUES (?, ?) ON CONFLICT (symbol) DO NOTHING`,
			symbols[name], name,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: upsert ticker %s", name)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}

func (s *SQLite) StartRun(ctx context.Context, dataset, table string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_log (id, dataset, table_name, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		id, dataset, table, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start run for %s", dataset)
	}
	return id, nil
}

func (s *SQLite) CompleteRun(ctx context.Context, runID, rowDate string, columnsAdded int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_log SET status = 'complete', row_date = ?, columns_added = ?,
		 finished_at = ? WHERE id = ?`,
		rowDate, columnsAdded, time.Now().UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return nil
}

func (s *SQLite) FailRun(ctx context.Context, runID string, cause error) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_log SET status = 'failed', error = ?, finished_at = ? WHERE id = ?`,
		cause.Error(), time.Now().UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return nil
}

func (s *SQLite) LastRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, table_name, IFNULL(row_date, ''), columns_added, status,
		        IFNULL(error, ''), started_at, IFNULL(finished_at, '')
		 FROM ingest_log ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Table, &r.RowDate, &r.ColumnsAdded,
			&r.Status, &r.Error, &started, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		if finished != "" {
			if t, err := time.Parse(time.RFC3339, finished); err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	return runs, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// textValue renders a scanned TEXT cell, tolerating []byte from the driver.
func textValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
