package ingest

import (
	"context"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

type chainRecord struct {
	Name        string  `json:"name"`
	TVL         float64 `json:"tvl"`
	TokenSymbol string  `json:"tokenSymbol"`
}

// Chains ingests per-chain TVL. Every chain is kept; there is no
// inclusion floor for this dataset.
type Chains struct{}

func (Chains) Name() string  { return "chains" }
func (Chains) Table() string { return "chains" }

func (Chains) BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error) {
	var recs []chainRecord
	if err := f.FetchInto(ctx, "chains", &recs); err != nil {
		return nil, err
	}

	row := model.Row{model.DateKey: today()}
	var total float64
	for _, rec := range recs {
		key := norm.Name(rec.Name)
		if key == "" {
			continue
		}
		v := round0(rec.TVL)
		// Colliding normalized names: later records overwrite earlier
		// ones in the row, but each still counts toward the total.
		row[key] = v
		total += v
	}
	row[model.TotalKey] = total
	return row, nil
}
