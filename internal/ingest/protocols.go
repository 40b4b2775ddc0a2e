package ingest

import (
	"context"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

type protocolRecord struct {
	Name   string  `json:"name"`
	TVL    float64 `json:"tvl"`
	Symbol string  `json:"symbol"`
}

// Protocols ingests per-protocol TVL. Protocols at or below MinTVL are
// dropped before the total is computed, so the total reflects only the
// included set.
type Protocols struct{}

func (Protocols) Name() string  { return "protocols" }
func (Protocols) Table() string { return "protocols" }

func (Protocols) BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error) {
	var recs []protocolRecord
	if err := f.FetchInto(ctx, "protocols", &recs); err != nil {
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
		if v <= MinTVL {
			continue
		}
		row[key] = v
		total += v
	}
	row[model.TotalKey] = total
	return row, nil
}
