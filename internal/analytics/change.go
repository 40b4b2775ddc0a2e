package analytics

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/tj-capital/tvlsync/internal/model"
)

var (
	// ErrDateNotFound reports an as-of date absent from the series.
	ErrDateNotFound = eris.New("analytics: date not found")

	// ErrInsufficientHistory reports fewer rows before the as-of date
	// than the lookback requires.
	ErrInsufficientHistory = eris.New("analytics: insufficient history")
)

// SnapshotAt extracts the single-date view used for bucketing.
func SnapshotAt(s *model.Series, asOf string) (*model.Snapshot, error) {
	if _, ok := s.Index(asOf); !ok {
		return nil, eris.Wrapf(ErrDateNotFound, "%s in table %s", asOf, s.Table)
	}
	return s.Snapshot(asOf)
}

// PctChange computes, per entity, the percentage change between the
// as-of row and the row lookback positions before it in the
// date-sorted series. Entities with a missing or zero reference value
// come back NaN; callers decide whether to drop them.
func PctChange(s *model.Series, asOf string, lookback int) (map[string]float64, error) {
	if lookback <= 0 {
		return nil, eris.Errorf("analytics: lookback must be positive, got %d", lookback)
	}
	idx, ok := s.Index(asOf)
	if !ok {
		return nil, eris.Wrapf(ErrDateNotFound, "%s in table %s", asOf, s.Table)
	}
	ref := idx - lookback
	if ref < 0 {
		return nil, eris.Wrapf(ErrInsufficientHistory,
			"%d rows before %s, need %d", idx, asOf, lookback)
	}

	out := make(map[string]float64, len(s.Cols))
	for _, col := range s.Cols {
		vals := s.Values[col]
		latest, refVal := vals[idx], vals[ref]
		if math.IsNaN(latest) || math.IsNaN(refVal) || refVal == 0 {
			out[col] = math.NaN()
			continue
		}
		out[col] = (latest - refVal) / refVal * 100
	}
	return out, nil
}
