package norm

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrMissingColumn reports a tabular header with no date-like column.
var ErrMissingColumn = eris.New("norm: no date column")

// DayFormat is the single calendar-day representation used everywhere:
// an ISO date with no time-of-day component.
const DayFormat = "2006-01-02"

// dayLayouts are the source layouts ParseDay accepts, tried in order.
var dayLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DayFormat,
	"2006/01/02",
	"01/02/2006",
}

// Day renders t as a calendar day, dropping any time-of-day component.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// ParseDay parses a date-like string and truncates it to a calendar day.
func ParseDay(s string) (time.Time, error) {
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, eris.Errorf("norm: unparseable date %q", s)
}

// DateColumn locates the date-like column of a tabular header. Header
// cells are Name-canonicalized before matching; "date" wins over
// "timestamp" when both are present. Fails with ErrMissingColumn when
// neither exists.
func DateColumn(header []string) (int, error) {
	tsIdx := -1
	for i, h := range header {
		switch Name(h) {
		case "date":
			return i, nil
		case "timestamp":
			if tsIdx < 0 {
				tsIdx = i
			}
		}
	}
	if tsIdx >= 0 {
		return tsIdx, nil
	}
	return 0, eris.Wrapf(ErrMissingColumn, "header %v", header)
}
