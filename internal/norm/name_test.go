package norm

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Ethereum", "ethereum"},
		{"Curve Finance v2", "curve_finance_v2"},
		{"  BNB Chain  ", "bnb_chain"},
		{"Uniswap - V3", "uniswap_v3"},
		{"ZKsync Era", "zksync_era"},
		{"A+B/C.D", "a_b_c_d"},
		{"---", ""},
		{"", ""},
		{"already_clean", "already_clean"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.input))
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	inputs := []string{"Ethereum", "Curve Finance v2", "A+B/C.D", "total", "  x  y  "}
	for _, s := range inputs {
		once := Name(s)
		assert.Equal(t, once, Name(once), "normalizing %q twice changed the result", s)
	}
}

func TestNames(t *testing.T) {
	got := Names([]string{"Arbitrum One", "OP Mainnet"})
	assert.Equal(t, []string{"arbitrum_one", "op_mainnet"}, got)
}

func TestNameKeys(t *testing.T) {
	got := NameKeys(map[string]float64{"Arbitrum One": 1, "Base": 2})
	assert.Equal(t, map[string]float64{"arbitrum_one": 1, "base": 2}, got)
}

func TestAny_Shapes(t *testing.T) {
	got, err := Any("Avalanche C-Chain")
	require.NoError(t, err)
	assert.Equal(t, "avalanche_c_chain", got)

	got, err = Any([]string{"Tron", "Solana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tron", "solana"}, got)

	got, err = Any(map[string]any{"Curve DAO": 1.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"curve_dao": 1.0}, got)

	got, err = Any(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAny_UnsupportedType(t *testing.T) {
	_, err := Any(42)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedType))

	_, err = Any([]any{"ok", 7})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedType))
}
