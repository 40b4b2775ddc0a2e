package analytics

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tj-capital/tvlsync/internal/model"
)

func testSeries() *model.Series {
	nan := math.NaN()
	return &model.Series{
		Table: "chains",
		Dates: []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		Cols:  []string{"eth", "tron", "late", "flat"},
		Values: map[string][]float64{
			"eth":  {100, 110, 90},
			"tron": {200, 200, 250},
			"late": {nan, nan, 50},
			"flat": {0, 0, 10},
		},
	}
}

func TestPctChange(t *testing.T) {
	changes, err := PctChange(testSeries(), "2024-01-03", 2)
	require.NoError(t, err)

	assert.InDelta(t, -10.0, changes["eth"], 1e-9)
	assert.InDelta(t, 25.0, changes["tron"], 1e-9)
	assert.True(t, math.IsNaN(changes["late"]), "missing reference is undefined")
	assert.True(t, math.IsNaN(changes["flat"]), "zero reference is undefined")
}

func TestPctChange_OneDayLookback(t *testing.T) {
	changes, err := PctChange(testSeries(), "2024-01-02", 1)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, changes["eth"], 1e-9)
	assert.InDelta(t, 0.0, changes["tron"], 1e-9)
}

func TestPctChange_DateNotFound(t *testing.T) {
	_, err := PctChange(testSeries(), "2023-12-31", 1)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDateNotFound))
}

func TestPctChange_InsufficientHistory(t *testing.T) {
	_, err := PctChange(testSeries(), "2024-01-02", 2)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientHistory))
}

func TestPctChange_InvalidLookback(t *testing.T) {
	_, err := PctChange(testSeries(), "2024-01-03", 0)
	assert.Error(t, err)
}

func TestSnapshotAt(t *testing.T) {
	snap, err := SnapshotAt(testSeries(), "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 90.0, snap.Values["eth"])

	_, err = SnapshotAt(testSeries(), "1999-01-01")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDateNotFound))
}
