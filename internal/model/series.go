package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// Series is a date-sorted view of one wide table. Values are aligned
// with Dates per column; NULL measures are NaN. Cols preserves the
// table's column order and excludes the reserved date/total columns.
type Series struct {
	Table  string
	Dates  []string
	Cols   []string
	Values map[string][]float64
}

// Snapshot is the set of entity measures as of a single date. Names
// preserves the series' column order so downstream consumers get a
// stable iteration order.
type Snapshot struct {
	Date   string
	Names  []string
	Values map[string]float64
}

// Index returns the position of date in the series.
func (s *Series) Index(date string) (int, bool) {
	for i, d := range s.Dates {
		if d == date {
			return i, true
		}
	}
	return 0, false
}

// Snapshot extracts the single-date view at the given date.
func (s *Series) Snapshot(date string) (*Snapshot, error) {
	idx, ok := s.Index(date)
	if !ok {
		return nil, eris.Errorf("series: date %s not in table %s", date, s.Table)
	}
	snap := &Snapshot{
		Date:   date,
		Names:  append([]string(nil), s.Cols...),
		Values: make(map[string]float64, len(s.Cols)),
	}
	for _, col := range s.Cols {
		vals := s.Values[col]
		if idx < len(vals) {
			snap.Values[col] = vals[idx]
		} else {
			snap.Values[col] = math.NaN()
		}
	}
	return snap, nil
}
