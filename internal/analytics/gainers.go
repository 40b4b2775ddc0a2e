package analytics

import (
	"math"
	"sort"

	"github.com/tj-capital/tvlsync/internal/model"
)

// Gainer is one entity's percentage change over the lookback window.
type Gainer struct {
	Name string  `json:"name"`
	Pct  float64 `json:"pct"`
}

// TopGainers buckets the snapshot's entities by size, computes each
// bucket's percentage changes over the lookback window, and keeps the
// n largest per bucket. Entities with an undefined change are dropped.
// Ties keep the snapshot's column order via the stable sort.
func TopGainers(s *model.Series, asOf string, lookback int, bands []Band, n int) (map[string][]Gainer, error) {
	snap, err := SnapshotAt(s, asOf)
	if err != nil {
		return nil, err
	}
	changes, err := PctChange(s, asOf, lookback)
	if err != nil {
		return nil, err
	}

	groups := BucketSnapshot(snap, bands)
	out := make(map[string][]Gainer, len(groups))
	for band, members := range groups {
		gainers := make([]Gainer, 0, len(members))
		for _, name := range members {
			pct, ok := changes[name]
			if !ok || math.IsNaN(pct) {
				continue
			}
			gainers = append(gainers, Gainer{Name: name, Pct: pct})
		}
		sort.SliceStable(gainers, func(i, j int) bool {
			return gainers[i].Pct > gainers[j].Pct
		})
		if n >= 0 && len(gainers) > n {
			gainers = gainers[:n]
		}
		out[band] = gainers
	}
	return out, nil
}

// GroupCounts reports the size of each bucket before the top-n cut.
func GroupCounts(snap *model.Snapshot, bands []Band) map[string]int {
	groups := BucketSnapshot(snap, bands)
	out := make(map[string]int, len(groups))
	for band, members := range groups {
		out[band] = len(members)
	}
	return out
}
