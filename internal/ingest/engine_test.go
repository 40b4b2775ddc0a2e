package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/store"
)

// memStore records the engine's calls against an in-memory column set.
type memStore struct {
	store.Store

	cols   map[string][]string
	rows   map[string][]model.Row
	runs   map[string]string // run id -> status
	ops    []string
	nextID int

	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		cols: map[string][]string{},
		rows: map[string][]model.Row{},
		runs: map[string]string{},
	}
}

func (m *memStore) Columns(_ context.Context, table string) ([]string, error) {
	return m.cols[table], nil
}

func (m *memStore) AddColumn(_ context.Context, table, column string) error {
	m.ops = append(m.ops, "add:"+table+":"+column)
	m.cols[table] = append(m.cols[table], column)
	return nil
}

func (m *memStore) EnsureWideTable(_ context.Context, table string) error {
	m.ops = append(m.ops, "ensure:"+table)
	return nil
}

func (m *memStore) WriteRow(_ context.Context, table string, row model.Row) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.ops = append(m.ops, "write:"+table)
	m.rows[table] = append(m.rows[table], row)
	return nil
}

func (m *memStore) StartRun(_ context.Context, dataset, _ string) (string, error) {
	m.nextID++
	id := fmt.Sprintf("run-%d-%s", m.nextID, dataset)
	m.runs[id] = model.RunRunning
	m.ops = append(m.ops, "start:"+dataset)
	return id, nil
}

func (m *memStore) CompleteRun(_ context.Context, id, _ string, _ int) error {
	m.runs[id] = model.RunComplete
	return nil
}

func (m *memStore) FailRun(_ context.Context, id string, _ error) error {
	m.runs[id] = model.RunFailed
	return nil
}

func dexFixtures() map[string]string {
	return map[string]string{
		"chains": `[
			{"name": "Ethereum", "tvl": 100, "tokenSymbol": "ETH"},
			{"name": "Tron", "tvl": 200, "tokenSymbol": "TRX"}
		]`,
		"protocols": `[{"name": "Aave", "tvl": 9000000, "symbol": "AAVE"}]`,
	}
}

func TestEngine_RunSingleDataset(t *testing.T) {
	st := newMemStore()
	f := &fakeFetcher{payloads: dexFixtures()}
	eng := NewEngine(st, f, DefaultRegistry())

	results, err := eng.Run(context.Background(), RunOpts{Datasets: []string{"chains"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "chains", results[0].Dataset)
	assert.Equal(t, today(), results[0].Date)
	assert.Equal(t, 2, results[0].ColumnsAdded)

	// Schema work precedes the write.
	assert.Equal(t, []string{
		"start:chains",
		"ensure:chains",
		"add:chains:ethereum",
		"add:chains:tron",
		"write:chains",
	}, st.ops)

	require.Len(t, st.rows["chains"], 1)
	assert.Equal(t, 300.0, st.rows["chains"][0][model.TotalKey])
	for _, status := range st.runs {
		assert.Equal(t, model.RunComplete, status)
	}
}

func TestEngine_SecondRunAddsNothing(t *testing.T) {
	st := newMemStore()
	f := &fakeFetcher{payloads: dexFixtures()}
	eng := NewEngine(st, f, DefaultRegistry())
	ctx := context.Background()

	_, err := eng.Run(ctx, RunOpts{Datasets: []string{"chains"}})
	require.NoError(t, err)

	results, err := eng.Run(ctx, RunOpts{Datasets: []string{"chains"}})
	require.NoError(t, err)
	assert.Equal(t, 0, results[0].ColumnsAdded)
}

func TestEngine_FetchFailureAbortsBatch(t *testing.T) {
	st := newMemStore()
	remote := &defillama.RemoteError{Dataset: "protocols", Status: 502}
	f := &fakeFetcher{payloads: dexFixtures(), errs: map[string]error{"protocols": remote}}
	eng := NewEngine(st, f, DefaultRegistry())

	results, err := eng.Run(context.Background(),
		RunOpts{Datasets: []string{"chains", "protocols", "chains"}})
	require.Error(t, err)

	var remoteErr *defillama.RemoteError
	assert.ErrorAs(t, err, &remoteErr)

	// chains committed before the failure; the trailing dataset never
	// ran.
	require.Len(t, results, 1)
	assert.Equal(t, "chains", results[0].Dataset)
	assert.Len(t, st.rows["chains"], 1)

	statuses := map[string]int{}
	for _, s := range st.runs {
		statuses[s]++
	}
	assert.Equal(t, 1, statuses[model.RunComplete])
	assert.Equal(t, 1, statuses[model.RunFailed])
}

func TestEngine_WriteFailureMarksRunFailed(t *testing.T) {
	st := newMemStore()
	st.writeErr = eris.New("disk full")
	f := &fakeFetcher{payloads: dexFixtures()}
	eng := NewEngine(st, f, DefaultRegistry())

	_, err := eng.Run(context.Background(), RunOpts{Datasets: []string{"chains"}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, st.writeErr))
	for _, status := range st.runs {
		assert.Equal(t, model.RunFailed, status)
	}
}

func TestEngine_UnknownDataset(t *testing.T) {
	eng := NewEngine(newMemStore(), &fakeFetcher{}, DefaultRegistry())

	_, err := eng.Run(context.Background(), RunOpts{Datasets: []string{"perps"}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, defillama.ErrUnknownDataset))
}

func TestRegistry_DefaultOrder(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t,
		[]string{"chains", "protocols", "stablecoins", "dexs", "dexs_chains"},
		reg.Names())

	d, err := reg.Get("  Dexs Chains ")
	require.NoError(t, err)
	assert.Equal(t, "dexs_chains", d.Name())
}
