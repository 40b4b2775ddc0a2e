package ingest

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tj-capital/tvlsync/internal/defillama"
	"github.com/tj-capital/tvlsync/internal/norm"
)

// versionSuffix strips trailing version markers like " v2" or " V3"
// from symbols before normalization.
var versionSuffix = regexp.MustCompile(`\s+[vV]\d+$`)

// TickerPair maps a normalized entity name to its normalized symbol.
type TickerPair struct {
	Name   string
	Symbol string
}

// BuildTickers assembles the name-to-symbol mapping from the chains
// and protocols datasets, fetched concurrently. Chains come first, and
// duplicates are dropped first by symbol, then by name, keeping the
// earliest occurrence.
func BuildTickers(ctx context.Context, f defillama.Fetcher) ([]TickerPair, error) {
	var (
		chains    []chainRecord
		protocols []protocolRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.FetchInto(gctx, "chains", &chains) })
	g.Go(func() error { return f.FetchInto(gctx, "protocols", &protocols) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := make([]TickerPair, 0, len(chains)+len(protocols))
	for _, c := range chains {
		raw = append(raw, TickerPair{Name: c.Name, Symbol: c.TokenSymbol})
	}
	for _, p := range protocols {
		raw = append(raw, TickerPair{Name: p.Name, Symbol: p.Symbol})
	}

	seenSymbol := map[string]bool{}
	seenName := map[string]bool{}
	out := make([]TickerPair, 0, len(raw))
	for _, pair := range raw {
		name := norm.Name(pair.Name)
		symbol := norm.Name(strings.TrimSpace(versionSuffix.ReplaceAllString(pair.Symbol, "")))
		if name == "" || symbol == "" {
			continue
		}
		if seenSymbol[symbol] || seenName[name] {
			continue
		}
		seenSymbol[symbol] = true
		seenName[name] = true
		out = append(out, TickerPair{Name: name, Symbol: symbol})
	}
	return out, nil
}
