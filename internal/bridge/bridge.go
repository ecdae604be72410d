package bridge

import (
    "cryptospread/internal/market"
)

// Set holds the bridge rates one source observed during the current
// cycle, keyed by bridge asset. Missing keys simply mean the source has
// no fiat book for that asset right now.
type Set map[market.Asset]market.BridgeQuote

// Rate is a configured fallback fiat rate for a bridge asset.
type Rate struct {
    Buy  float64 `json:"buy"`
    Sell float64 `json:"sell"`
}

// Resolver picks a bridge rate for composing a fiat quote. Candidates
// are tried in strict priority order; when none is present a configured
// fallback constant is used so a stale-but-present price still beats no
// price at all.
type Resolver struct {
    Priority []market.Asset
    Fallback map[market.Asset]Rate
}

// Resolution carries the chosen rate and how it was obtained.
type Resolution struct {
    Quote        market.BridgeQuote
    UsedFallback bool
}

// Resolve returns the first candidate whose rate is present in the set.
// First match wins; no averaging across bridges.
func (r Resolver) Resolve(set Set) Resolution {
    for _, cand := range r.Priority {
        if bq, ok := set[cand]; ok && bq.Buy > 0 && bq.Sell > 0 {
            return Resolution{Quote: bq}
        }
    }
    return r.fallbackFor(firstOr(r.Priority, "usd"))
}

// ResolveAsset returns the rate for one specific bridge asset, used when
// the native quote is already denominated in that asset.
func (r Resolver) ResolveAsset(set Set, asset market.Asset) Resolution {
    if bq, ok := set[asset]; ok && bq.Buy > 0 && bq.Sell > 0 {
        return Resolution{Quote: bq}
    }
    return r.fallbackFor(asset)
}

func (r Resolver) fallbackFor(asset market.Asset) Resolution {
    rate, ok := r.Fallback[asset]
    if !ok {
        // a misconfigured deployment should still produce a best-effort
        // price; reuse any configured constant before giving up
        for _, cand := range r.Priority {
            if alt, found := r.Fallback[cand]; found {
                rate, ok = alt, true
                break
            }
        }
    }
    if !ok {
        rate = Rate{Buy: 1, Sell: 1}
    }
    return Resolution{
        Quote:        market.BridgeQuote{Asset: asset, Buy: rate.Buy, Sell: rate.Sell},
        UsedFallback: true,
    }
}

func firstOr(xs []market.Asset, def market.Asset) market.Asset {
    if len(xs) > 0 { return xs[0] }
    return def
}
