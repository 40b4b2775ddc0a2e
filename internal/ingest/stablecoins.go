package ingest

import (
	"context"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

type stablecoinRecord struct {
	Name                string             `json:"name"`
	TVL                 float64            `json:"tvl"`
	TotalCirculatingUSD map[string]float64 `json:"totalCirculatingUSD"`
}

// Stablecoins ingests per-chain stablecoin circulation. The source
// emits a synthetic "TotalCirculating" entity; it becomes the row's
// total, taking its value from the nested peggedUSD measure instead of
// the flat tvl field. No computed sum replaces it.
type Stablecoins struct{}

func (Stablecoins) Name() string  { return "stablecoins" }
func (Stablecoins) Table() string { return "stablecoins" }

func (Stablecoins) BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error) {
	var recs []stablecoinRecord
	if err := f.FetchInto(ctx, "stablecoins", &recs); err != nil {
		return nil, err
	}

	row := model.Row{model.DateKey: today()}
	for _, rec := range recs {
		key := norm.Name(rec.Name)
		if key == "" {
			continue
		}
		if key == "totalcirculating" {
			row[model.TotalKey] = round0(rec.TotalCirculatingUSD["peggedUSD"])
			continue
		}
		row[key] = round0(rec.TVL)
	}
	return row, nil
}
