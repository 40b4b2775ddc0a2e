package ingest

import (
	"context"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

type dexRecord struct {
	Name         string                        `json:"name"`
	Total24h     float64                       `json:"total24h"`
	Breakdown24h map[string]map[string]float64 `json:"breakdown24h"`
}

// Dexs ingests 24h volume per exchange. Exchanges at or below MinTVL
// are dropped before the total is computed.
type Dexs struct{}

func (Dexs) Name() string  { return "dexs" }
func (Dexs) Table() string { return "dexs" }

func (Dexs) BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error) {
	var recs []dexRecord
	if err := f.FetchInto(ctx, "dexs", &recs); err != nil {
		return nil, err
	}

	row := model.Row{model.DateKey: today()}
	var total float64
	for _, rec := range recs {
		key := norm.Name(rec.Name)
		if key == "" {
			continue
		}
		v := round0(rec.Total24h)
		if v <= MinTVL {
			continue
		}
		row[key] = v
		total += v
	}
	row[model.TotalKey] = total
	return row, nil
}
