package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tj-capital/tvlsync/internal/db"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

// Postgres implements Store on pgx. All dynamic identifiers (table and
// entity column names) are sanitized before interpolation; values
// always travel as bind parameters.
type Postgres struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Test seam for pgxmock.
func NewPostgresFromPool(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingest_log (
	id            TEXT PRIMARY KEY,
	dataset       TEXT NOT NULL,
	table_name    TEXT NOT NULL,
	row_date      DATE,
	columns_added INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'running',
	error         TEXT,
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_log_started_at ON ingest_log(started_at DESC);

CREATE TABLE IF NOT EXISTS tickers (
	symbol TEXT PRIMARY KEY,
	name   TEXT
);`

// Migrate creates the ingest log and tickers tables. Wide tables are
// created lazily by the ingest and setup paths.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Columns returns the table's entity columns (reserved date/total
// excluded), sorted. A table unknown to the catalog yields an empty
// set, not an error.
func (s *Postgres) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_name = $1 AND column_name NOT IN ('date', 'total')
		 ORDER BY column_name`,
		table,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read columns of %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan column of %s", table)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: read columns of %s", table)
	}
	return cols, nil
}

// AddColumn adds one nullable numeric column.
func (s *Postgres) AddColumn(ctx context.Context, table, column string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s DOUBLE PRECISION",
		db.Ident(table), db.Ident(column))
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return eris.Wrapf(err, "postgres: add column %s.%s", table, column)
	}
	return nil
}

// EnsureWideTable creates the table with just its date primary key if
// it does not exist yet; entity columns arrive via ReconcileSchema.
func (s *Postgres) EnsureWideTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s DATE PRIMARY KEY)",
		db.Ident(table), db.Ident(model.DateKey))
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return eris.Wrapf(err, "postgres: ensure table %s", table)
	}
	return nil
}

// CreateWideTable drops and recreates the table with the given numeric
// columns. Bootstrap only.
func (s *Postgres) CreateWideTable(ctx context.Context, table string, columns []string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", db.Ident(table))); err != nil {
		return eris.Wrapf(err, "postgres: drop table %s", table)
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, db.Ident(model.DateKey)+" DATE PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, db.Ident(col)+" DOUBLE PRECISION")
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", db.Ident(table), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return eris.Wrapf(err, "postgres: create table %s", table)
	}
	return nil
}

// WriteRow performs the date-keyed insert-or-update. Idempotent:
// re-running with an identical row is a no-op in effect; a changed row
// for the same date overwrites every column it carries, while columns
// absent from the row keep their stored values.
func (s *Postgres) WriteRow(ctx context.Context, table string, row model.Row) error {
	if row.Date() == "" {
		return eris.Errorf("postgres: row for %s has no date key", table)
	}

	vals, err := norm.Values(row)
	if err != nil {
		return eris.Wrapf(err, "postgres: normalize row for %s", table)
	}

	keys := row.Keys()
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	var updates []string
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = vals[k]
		if k != model.DateKey {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", db.Ident(k), db.Ident(k)))
		}
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		db.Ident(table),
		db.IdentList(keys),
		strings.Join(placeholders, ", "),
		db.Ident(model.DateKey),
		conflict,
	)

	if _, err := s.pool.Exec(ctx, stmt, args...); err != nil {
		return eris.Wrapf(err, "postgres: upsert row into %s", table)
	}
	return nil
}

// BulkLoad streams bootstrap rows into the table via COPY.
func (s *Postgres) BulkLoad(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return db.CopyRows(ctx, s.pool, table, columns, rows)
}

// LoadSeries reads the whole wide table ordered by date. NULL measures
// become NaN; the reserved total column is excluded alongside date.
func (s *Postgres) LoadSeries(ctx context.Context, table string) (*model.Series, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		db.Ident(table), db.Ident(model.DateKey)))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load series from %s", table)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	series := &model.Series{Table: table, Values: make(map[string][]float64)}
	for _, name := range names {
		if name == model.DateKey || name == model.TotalKey {
			continue
		}
		series.Cols = append(series.Cols, name)
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan series row from %s", table)
		}
		for i, name := range names {
			switch name {
			case model.DateKey:
				series.Dates = append(series.Dates, dayString(vals[i]))
			case model.TotalKey:
			default:
				series.Values[name] = append(series.Values[name], floatOrNaN(vals[i]))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: load series from %s", table)
	}
	return series, nil
}

// TableStatus reports row count, entity count, and last recorded date.
func (s *Postgres) TableStatus(ctx context.Context, table string) (*TableStatus, error) {
	var count int64
	var last *time.Time
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*), max(%s) FROM %s",
		db.Ident(model.DateKey), db.Ident(table))).Scan(&count, &last)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: status of %s", table)
	}

	cols, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	status := &TableStatus{Table: table, Rows: count, Entities: len(cols)}
	if last != nil {
		status.LastDate = norm.Day(*last)
	}
	return status, nil
}

// UpsertTickers inserts new symbol->name pairs, keeping existing rows
// (first occurrence wins, matching the builder's dedupe policy).
func (s *Postgres) UpsertTickers(ctx context.Context, symbols map[string]string) (int64, error) {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var inserted int64
	for _, name := range names {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO tickers (symbol, name) VALUES ($1, $2) ON CONFLICT (symbol) DO NOTHING`,
			symbols[name], name,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: upsert ticker %s", name)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// StartRun records the beginning of one dataset's ingest pass.
func (s *Postgres) StartRun(ctx context.Context, dataset, table string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_log (id, dataset, table_name, status, started_at)
		 VALUES ($1, $2, $3, 'running', now())`,
		id, dataset, table,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for %s", dataset)
	}
	return id, nil
}

// CompleteRun marks a run as successfully committed.
func (s *Postgres) CompleteRun(ctx context.Context, runID, rowDate string, columnsAdded int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingest_log SET status = 'complete', row_date = $1, columns_added = $2,
		 finished_at = now() WHERE id = $3`,
		rowDate, columnsAdded, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return nil
}

// FailRun marks a run as failed, recording the cause.
func (s *Postgres) FailRun(ctx context.Context, runID string, cause error) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingest_log SET status = 'failed', error = $1, finished_at = now() WHERE id = $2`,
		cause.Error(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	return nil
}

// LastRuns returns the most recent ingest log entries, newest first.
func (s *Postgres) LastRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset, table_name, row_date, columns_added, status, COALESCE(error, ''),
		        started_at, finished_at
		 FROM ingest_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var rowDate *time.Time
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Table, &rowDate, &r.ColumnsAdded,
			&r.Status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if rowDate != nil {
			r.RowDate = norm.Day(*rowDate)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	return runs, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// dayString renders a scanned date value as an ISO calendar day.
func dayString(v any) string {
	switch x := v.(type) {
	case time.Time:
		return norm.Day(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// floatOrNaN coerces a scanned measure to float64, mapping NULL to NaN.
func floatOrNaN(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	default:
		return math.NaN()
	}
}
