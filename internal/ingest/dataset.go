// Package ingest turns remote dataset payloads into dated wide-table
// rows and drives the fetch-transform-upsert cycle for each dataset.
package ingest

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/model"
	"github.com/tj-capital/tvlsync/internal/norm"
)

// MinTVL is the inclusion floor for protocol and dex measures. Entities
// at or below it are dropped before the row total is computed.
const MinTVL = 5_000_000

// Dataset builds a single dated row from the remote source.
type Dataset interface {
	// Name is the registry key, already in normalized form.
	Name() string

	// Table is the wide table this dataset writes to.
	Table() string

	// BuildRow fetches the dataset and reduces it to one dated row.
	BuildRow(ctx context.Context, f defillama.Fetcher) (model.Row, error)
}

// Registry holds the known datasets in registration order.
type Registry struct {
	order []string
	byKey map[string]Dataset
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[string]Dataset{}}
}

// DefaultRegistry returns a registry with every supported dataset.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Chains{})
	r.Register(Protocols{})
	r.Register(Stablecoins{})
	r.Register(Dexs{})
	r.Register(DexChains{})
	return r
}

func (r *Registry) Register(d Dataset) {
	key := norm.Name(d.Name())
	if _, ok := r.byKey[key]; !ok {
		r.order = append(r.order, key)
	}
	r.byKey[key] = d
}

// Get resolves a dataset by name, normalizing it first.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.byKey[norm.Name(name)]
	if !ok {
		return nil, eris.Wrapf(defillama.ErrUnknownDataset, "%q", name)
	}
	return d, nil
}

// Select resolves the named datasets, or all of them when names is
// empty. Order follows registration order for the empty case and the
// caller's order otherwise.
func (r *Registry) Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	out := make([]Dataset, 0, len(names))
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Registry) All() []Dataset {
	out := make([]Dataset, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// today is the local calendar day at the moment of the call. Runs on
// either side of local midnight produce different rows.
func today() string {
	return norm.Day(time.Now())
}

func round0(v float64) float64 {
	return math.Round(v)
}
