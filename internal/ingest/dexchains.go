package ingest

import (
	"context"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

// DexChains ingests 24h volume per chain, summed from each exchange's
// per-chain breakdown. An exchange missing a chain in its breakdown
// contributes nothing for that chain. Aggregation runs over the raw
// chain names; rounding happens once, after the cross-exchange sum.
type DexChains struct{}

func (DexChains) Name() string  { return "dexs_chains" }
func (DexChains) Table() string { return "dexs_chains" }

func (DexChains) BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error) {
	var recs []dexRecord
	if err := f.FetchInto(ctx, "dexs_chains", &recs); err != nil {
		return nil, err
	}

	acc := map[string]float64{}
	for _, rec := range recs {
		for chain, perDex := range rec.Breakdown24h {
			for _, v := range perDex {
				acc[chain] += v
			}
		}
	}

	row := model.Row{model.DateKey: today()}
	var total float64
	for chain, sum := range acc {
		key := norm.Name(chain)
		if key == "" {
			continue
		}
		v := round0(sum)
		row[key] = v
		total += v
	}
	row[model.TotalKey] = total
	return row, nil
}
