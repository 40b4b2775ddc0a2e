package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tj-capital/tvlsync/internal/model"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Postgres) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresFromPool(mock)
}

func TestPostgres_Columns(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("chains").
		WillReturnRows(pgxmock.NewRows([]string{"column_name"}).
			AddRow("chain_a").AddRow("chain_b"))

	cols, err := st.Columns(context.Background(), "chains")
	require.NoError(t, err)
	assert.Equal(t, []string{"chain_a", "chain_b"}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddColumn(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec(`ALTER TABLE "chains" ADD COLUMN "chain_c" DOUBLE PRECISION`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))

	require.NoError(t, st.AddColumn(context.Background(), "chains", "chain_c"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WriteRow(t *testing.T) {
	mock, st := newMockStore(t)

	row := model.Row{
		"date":    "2024-01-01",
		"total":   300.0,
		"chain_b": 200.0,
		"chain_a": 100.0,
	}

	// Deterministic column order: date, total, then sorted entities.
	mock.ExpectExec(`INSERT INTO "chains" \("date", "total", "chain_a", "chain_b"\) `+
		`VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \("date"\) DO UPDATE SET `+
		`"total" = EXCLUDED."total", "chain_a" = EXCLUDED."chain_a", "chain_b" = EXCLUDED."chain_b"`).
		WithArgs("2024-01-01", 300.0, 100.0, 200.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.WriteRow(context.Background(), "chains", row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WriteRow_MissingDate(t *testing.T) {
	_, st := newMockStore(t)

	err := st.WriteRow(context.Background(), "chains", model.Row{"chain_a": 1.0})
	assert.Error(t, err)
}

func TestPostgres_FreshTableScenario(t *testing.T) {
	mock, st := newMockStore(t)
	ctx := context.Background()

	row := model.Row{"date": "2024-01-01", "total": 300.0, "chain_a": 100.0, "chain_b": 200.0}

	// Empty catalog: both entity columns are new.
	mock.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("chains").
		WillReturnRows(pgxmock.NewRows([]string{"column_name"}))
	mock.ExpectExec(`ALTER TABLE "chains" ADD COLUMN "chain_a" DOUBLE PRECISION`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectExec(`ALTER TABLE "chains" ADD COLUMN "chain_b" DOUBLE PRECISION`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectExec(`INSERT INTO "chains"`).
		WithArgs("2024-01-01", 300.0, 100.0, 200.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	added, err := ReconcileSchema(ctx, st, "chains", row.Keys())
	require.NoError(t, err)
	assert.Equal(t, []string{"chain_a", "chain_b"}, added)

	require.NoError(t, st.WriteRow(ctx, "chains", row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NewEntityScenario(t *testing.T) {
	mock, st := newMockStore(t)
	ctx := context.Background()

	row := model.Row{"date": "2024-01-02", "total": 450.0, "chain_a": 150.0, "chain_c": 300.0}

	// chain_a and chain_b already exist; only chain_c is added.
	mock.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("chains").
		WillReturnRows(pgxmock.NewRows([]string{"column_name"}).
			AddRow("chain_a").AddRow("chain_b"))
	mock.ExpectExec(`ALTER TABLE "chains" ADD COLUMN "chain_c" DOUBLE PRECISION`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	// The upsert touches only the row's own columns: chain_b keeps its
	// stored value for other dates and stays NULL for this one.
	mock.ExpectExec(`INSERT INTO "chains" \("date", "total", "chain_a", "chain_c"\)`).
		WithArgs("2024-01-02", 450.0, 150.0, 300.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	added, err := ReconcileSchema(ctx, st, "chains", row.Keys())
	require.NoError(t, err)
	assert.Equal(t, []string{"chain_c"}, added)

	require.NoError(t, st.WriteRow(ctx, "chains", row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EnsureWideTable(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "chains" \("date" DATE PRIMARY KEY\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.EnsureWideTable(context.Background(), "chains"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateWideTable(t *testing.T) {
	mock, st := newMockStore(t)

	mock.ExpectExec(`DROP TABLE IF EXISTS "chains"`).
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(`CREATE TABLE "chains" \("date" DATE PRIMARY KEY, "total" DOUBLE PRECISION, "chain_a" DOUBLE PRECISION\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.CreateWideTable(context.Background(), "chains", []string{"total", "chain_a"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadSeries(t *testing.T) {
	mock, st := newMockStore(t)

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "chains" ORDER BY "date"`).
		WillReturnRows(pgxmock.NewRows([]string{"date", "total", "chain_a", "chain_b"}).
			AddRow(d1, 300.0, 100.0, 200.0).
			AddRow(d2, 450.0, 150.0, nil))

	series, err := st.LoadSeries(context.Background(), "chains")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, series.Dates)
	assert.Equal(t, []string{"chain_a", "chain_b"}, series.Cols)
	assert.Equal(t, []float64{100.0, 150.0}, series.Values["chain_a"])
	require.Len(t, series.Values["chain_b"], 2)
	assert.Equal(t, 200.0, series.Values["chain_b"][0])
	assert.True(t, series.Values["chain_b"][1] != series.Values["chain_b"][1], "NULL should scan as NaN")
	assert.NotContains(t, series.Values, "total")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RunLog(t *testing.T) {
	mock, st := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO ingest_log").
		WithArgs(pgxmock.AnyArg(), "chains", "chains").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE ingest_log SET status = 'complete'").
		WithArgs("2024-01-01", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	id, err := st.StartRun(ctx, "chains", "chains")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, st.CompleteRun(ctx, id, "2024-01-01", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
