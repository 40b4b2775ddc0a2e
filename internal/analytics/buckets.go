// Package analytics provides read-only queries over accumulated wide
// tables: size bucketing, percentage change, and top gainers. Nothing
// here mutates the store.
package analytics

import (
	_ "embed"
	"math"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tj-capital/tvlsync/internal/model"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

// Band is one size class. Floor is exclusive; a nil Floor marks the
// catch-all band that must close the list.
type Band struct {
	Name  string   `yaml:"name"`
	Floor *float64 `yaml:"floor"`
}

// Thresholds maps a table name to its ordered band list, largest
// first.
type Thresholds map[string][]Band

// LoadThresholds parses the embedded band tables and validates that
// each list partitions the real line: floors strictly descending,
// exactly one floorless band, and it comes last.
func LoadThresholds() (Thresholds, error) {
	var t Thresholds
	if err := yaml.Unmarshal(thresholdsYAML, &t); err != nil {
		return nil, eris.Wrap(err, "analytics: parse thresholds")
	}
	for table, bands := range t {
		if err := validateBands(bands); err != nil {
			return nil, eris.Wrapf(err, "analytics: thresholds for %s", table)
		}
	}
	return t, nil
}

func validateBands(bands []Band) error {
	if len(bands) == 0 {
		return eris.New("no bands")
	}
	var prev *float64
	for i, b := range bands {
		last := i == len(bands)-1
		if b.Floor == nil {
			if !last {
				return eris.Errorf("band %q: only the last band may omit a floor", b.Name)
			}
			continue
		}
		if last {
			return eris.Errorf("band %q: last band must omit its floor", b.Name)
		}
		if prev != nil && *b.Floor >= *prev {
			return eris.Errorf("band %q: floors must strictly descend", b.Name)
		}
		prev = b.Floor
	}
	return nil
}

// For returns the band list for the named table.
func (t Thresholds) For(table string) ([]Band, error) {
	bands, ok := t[table]
	if !ok {
		return nil, eris.Errorf("analytics: no thresholds defined for table %s", table)
	}
	return bands, nil
}

// Tables lists the tables with a band list.
func (t Thresholds) Tables() []string {
	out := make([]string, 0, len(t))
	for table := range t {
		out = append(out, table)
	}
	return out
}

// Bucket places a measure in its band. NaN falls in no band.
func Bucket(bands []Band, v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	for _, b := range bands {
		if b.Floor == nil || v > *b.Floor {
			return b.Name, true
		}
	}
	return "", false
}

// BucketSnapshot partitions the snapshot's entities into bands. Every
// band appears in the result, empty or not, and members keep the
// snapshot's column order.
func BucketSnapshot(snap *model.Snapshot, bands []Band) map[string][]string {
	out := make(map[string][]string, len(bands))
	for _, b := range bands {
		out[b.Name] = []string{}
	}
	for _, name := range snap.Names {
		if band, ok := Bucket(bands, snap.Values[name]); ok {
			out[band] = append(out[band], name)
		}
	}
	return out
}
