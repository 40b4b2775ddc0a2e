// Package defillama fetches datasets from the public DeFiLlama API and
// returns them as raw JSON arrays ready for per-dataset decoding.
package defillama

// Endpoint describes one dataset's API location. Unwrap names the
// object field holding the real array for payloads that nest it;
// payloads that are already arrays leave it empty.
type Endpoint struct {
	URL    string
	Unwrap string
}

const dexOverviewURL = "https://api.llama.fi/overview/dexs?excludeTotalDataChart=true&excludeTotalDataChartBreakdown=false"

// defaultEndpoints is the static dataset registry. dexs and dexs_chains
// are two views over the same overview payload; stablecoins nests its
// per-chain array under "chains".
var defaultEndpoints = map[string]Endpoint{
	"chains":      {URL: "https://api.llama.fi/v2/chains"},
	"protocols":   {URL: "https://api.llama.fi/v2/protocols"},
	"stablecoins": {URL: "https://stablecoins.llama.fi/stablecoins?includePrices=true", Unwrap: "chains"},
	"dexs":        {URL: dexOverviewURL, Unwrap: "protocols"},
	"dexs_chains": {URL: dexOverviewURL, Unwrap: "protocols"},
}
