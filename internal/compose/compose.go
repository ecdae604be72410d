package compose

import (
    "math"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
)

// Build combines a source's native fragment with the source's own
// bridge rates into a final fiat quote.
//
// Fragments already quoted in fiat pass through as direct quotes; the
// bridge is then only consulted to derive USD equivalents. Fragments
// quoted in USD terms are multiplied by the resolved bridge rate.
func Build(sourceID string, asset market.Asset, frag source.Fragment, r bridge.Resolver, set bridge.Set, cat market.Catalog) (market.Quote, error) {
    if !frag.Direct() && frag.BuyUSD == nil && frag.SellUSD == nil {
        return market.Quote{}, source.ErrNoData
    }

    q := market.Quote{SourceID: sourceID, Asset: asset}

    if frag.Direct() {
        q.BuyFiat = deref(frag.BuyFiat)
        q.SellFiat = deref(frag.SellFiat)
        q.DirectFiat = true

        switch {
        case frag.BuyUSD != nil || frag.SellUSD != nil:
            q.BuyUSD = deref(frag.BuyUSD)
            q.SellUSD = deref(frag.SellUSD)
        case len(set) == 0 && cat.ClassOf(asset) == market.Stable:
            // fiat-native source with no bridge books; assume the peg
            q.BuyUSD, q.SellUSD = 1.0, 1.0
        case len(set) == 0:
            // no observation to derive from; leave USD fields unset
        default:
            res := r.Resolve(set)
            if res.Quote.Buy > 0 { q.BuyUSD = q.BuyFiat / res.Quote.Buy }
            if res.Quote.Sell > 0 { q.SellUSD = q.SellFiat / res.Quote.Sell }
            q.BridgeUsed = res.Quote.Asset
        }
    } else {
        var res bridge.Resolution
        if frag.Denominated != "" {
            res = r.ResolveAsset(set, frag.Denominated)
        } else {
            res = r.Resolve(set)
        }
        q.BuyUSD = deref(frag.BuyUSD)
        q.SellUSD = deref(frag.SellUSD)
        q.BuyFiat = q.BuyUSD * res.Quote.Buy
        q.SellFiat = q.SellUSD * res.Quote.Sell
        q.DirectFiat = false
        q.BridgeUsed = res.Quote.Asset
    }

    q.SpreadPct = Spread(q.BuyFiat, q.SellFiat)
    return q, nil
}

// Spread is the buy/sell percentage gap rounded to two decimals,
// computed from the fiat pair only. Zero buy yields zero (undefined).
func Spread(buyFiat, sellFiat float64) float64 {
    if buyFiat == 0 {
        return 0
    }
    return math.Round(((buyFiat-sellFiat)/buyFiat)*100*100) / 100
}

func deref(p *float64) float64 {
    if p == nil { return 0 }
    return *p
}
