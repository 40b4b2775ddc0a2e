package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/store"
)

// Engine runs the fetch-transform-upsert cycle. Datasets are processed
// sequentially and each commits independently; the first failure aborts
// the batch, leaving already-committed datasets in place. Re-running
// the whole batch is the recovery mechanism.
type Engine struct {
	store   store.Store
	fetcher defillama.Fetcher
	reg     *Registry
}

func NewEngine(st store.Store, f defillama.Fetcher, reg *Registry) *Engine {
	return &Engine{store: st, fetcher: f, reg: reg}
}

// RunOpts restricts a run to a subset of datasets. Empty means all.
type RunOpts struct {
	Datasets []string
}

// Result reports one dataset's completed upsert.
type Result struct {
	Dataset      string
	Table        string
	Date         string
	ColumnsAdded int
}

// Run processes the selected datasets in order. It returns the results
// of the datasets that committed before any failure.
func (e *Engine) Run(ctx context.Context, opts RunOpts) ([]Result, error) {
	datasets, err := e.reg.Select(opts.Datasets)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(datasets))
	for _, d := range datasets {
		res, err := e.runOne(ctx, d)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) runOne(ctx context.Context, d Dataset) (Result, error) {
	log := zap.L().With(zap.String("dataset", d.Name()), zap.String("table", d.Table()))

	runID, err := e.store.StartRun(ctx, d.Name(), d.Table())
	if err != nil {
		return Result{}, eris.Wrapf(err, "ingest: %s: start run", d.Name())
	}

	row, err := d.BuildRow(ctx, e.fetcher)
	if err != nil {
		return Result{}, e.fail(ctx, runID, log, eris.Wrapf(err, "ingest: %s: build row", d.Name()))
	}
	if row.Date() == "" {
		return Result{}, e.fail(ctx, runID, log, eris.Errorf("ingest: %s: row has no date", d.Name()))
	}

	if err := e.store.EnsureWideTable(ctx, d.Table()); err != nil {
		return Result{}, e.fail(ctx, runID, log, eris.Wrapf(err, "ingest: %s: ensure table", d.Name()))
	}

	// Schema reconciliation must finish before the write is issued.
	added, err := store.ReconcileSchema(ctx, e.store, d.Table(), row.Keys())
	if err != nil {
		return Result{}, e.fail(ctx, runID, log, err)
	}
	if len(added) > 0 {
		log.Info("added columns", zap.Strings("columns", added))
	}

	if err := e.store.WriteRow(ctx, d.Table(), row); err != nil {
		return Result{}, e.fail(ctx, runID, log, eris.Wrapf(err, "ingest: %s: write row", d.Name()))
	}

	if err := e.store.CompleteRun(ctx, runID, row.Date(), len(added)); err != nil {
		return Result{}, eris.Wrapf(err, "ingest: %s: complete run", d.Name())
	}

	log.Info("dataset synced",
		zap.String("date", row.Date()),
		zap.Int("entities", len(row.EntityKeys())),
		zap.Int("columns_added", len(added)))

	return Result{
		Dataset:      d.Name(),
		Table:        d.Table(),
		Date:         row.Date(),
		ColumnsAdded: len(added),
	}, nil
}

func (e *Engine) fail(ctx context.Context, runID string, log *zap.Logger, cause error) error {
	if err := e.store.FailRun(ctx, runID, cause); err != nil {
		log.Warn("failed to record run failure", zap.Error(err))
	}
	log.Error("dataset sync failed", zap.Error(cause))
	return cause
}
