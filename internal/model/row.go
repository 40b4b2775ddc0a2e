// Package model holds the shared value types passed between the ingest,
// store, and analytics layers.
package model

import "sort"

// Reserved column keys present in every wide table. They are never
// treated as entity columns.
const (
	DateKey  = "date"
	TotalKey = "total"
)

// Row is a single dated measurement: a mapping from entity name to its
// measure, plus the reserved date and total keys. The date value is an
// ISO calendar-day string; measures are float64.
type Row map[string]any

// Date returns the row's calendar-day key, or "" when unset.
func (r Row) Date() string {
	if d, ok := r[DateKey].(string); ok {
		return d
	}
	return ""
}

// Keys returns every column key in deterministic order: date first,
// then total (when present), then entity keys sorted alphabetically.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	if _, ok := r[DateKey]; ok {
		keys = append(keys, DateKey)
	}
	if _, ok := r[TotalKey]; ok {
		keys = append(keys, TotalKey)
	}
	keys = append(keys, r.EntityKeys()...)
	return keys
}

// EntityKeys returns the non-reserved column keys, sorted.
func (r Row) EntityKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k == DateKey || k == TotalKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
