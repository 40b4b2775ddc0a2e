package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTickers(t *testing.T) {
	f := &fakeFetcher{payloads: map[string]string{
		"chains": `[
			{"name": "Ethereum", "tvl": 1, "tokenSymbol": "ETH"},
			{"name": "Tron", "tvl": 1, "tokenSymbol": "TRX"},
			{"name": "Nameless", "tvl": 1, "tokenSymbol": "-"}
		]`,
		"protocols": `[
			{"name": "Uniswap v3", "tvl": 1, "symbol": "UNI v3"},
			{"name": "Ethereum Staking", "tvl": 1, "symbol": "ETH"},
			{"name": "Tron", "tvl": 1, "symbol": "TRONX"}
		]`,
	}}

	pairs, err := BuildTickers(context.Background(), f)
	require.NoError(t, err)

	// Chains take precedence: the protocol reusing ETH is dropped by
	// symbol, the protocol reusing the tron name is dropped by name.
	// "-" normalizes to empty and is skipped. Version suffixes are
	// stripped before symbol normalization.
	assert.Equal(t, []TickerPair{
		{Name: "ethereum", Symbol: "eth"},
		{Name: "tron", Symbol: "trx"},
		{Name: "uniswap_v3", Symbol: "uni"},
	}, pairs)
}

func TestBuildTickers_FetchError(t *testing.T) {
	f := &fakeFetcher{payloads: map[string]string{
		"chains": `[]`,
	}}

	_, err := BuildTickers(context.Background(), f)
	require.Error(t, err)
}
