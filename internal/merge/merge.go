package merge

import (
    "strings"

    "cryptospread/internal/market"
    "cryptospread/internal/money"
)

// Row is one served price line for an asset. Manual rows may carry the
// "not determined" sentinel in any money field.
type Row struct {
    SourceID   string      `json:"exchange"`
    BuyFiat    money.Value `json:"buy_cop"`
    SellFiat   money.Value `json:"sell_cop"`
    BuyUSD     money.Value `json:"buy_usd"`
    SellUSD    money.Value `json:"sell_usd"`
    SpreadPct  float64     `json:"spread"`
    DirectFiat bool        `json:"direct_cop"`
    BridgeUsed string      `json:"usd_bridge"`
}

// PriceList overlays operator-entered prices onto the stored automated
// quotes for one asset. Platforms that are inactive contribute nothing
// and suppress their automated quotes; a manual entry for a platform
// replaces that platform's automated record, never duplicates it.
func PriceList(asset market.Asset, fiat string, cat market.Catalog, auto []market.Quote, platforms []market.PlatformProfile) []Row {
    asset = strings.ToLower(asset)

    active := make(map[string]bool, len(platforms))
    for _, p := range platforms {
        if p.IsActive { active[p.ID] = true }
    }

    manual := make(map[string]Row)
    order := make([]string, 0)
    for _, p := range platforms {
        if !p.IsActive || !p.IsManual {
            continue
        }
        row, ok := manualRow(p, asset, fiat, cat)
        if !ok {
            continue
        }
        if _, dup := manual[p.ID]; dup {
            continue
        }
        manual[p.ID] = row
        order = append(order, p.ID)
    }

    out := make([]Row, 0, len(auto)+len(manual))
    for _, q := range auto {
        if !active[q.SourceID] {
            continue
        }
        if _, overridden := manual[q.SourceID]; overridden {
            continue
        }
        out = append(out, Row{
            SourceID:   q.SourceID,
            BuyFiat:    money.Number(q.BuyFiat),
            SellFiat:   money.Number(q.SellFiat),
            BuyUSD:     money.Number(q.BuyUSD),
            SellUSD:    money.Number(q.SellUSD),
            SpreadPct:  q.SpreadPct,
            DirectFiat: q.DirectFiat,
            BridgeUsed: q.BridgeUsed,
        })
    }
    for _, id := range order {
        out = append(out, manual[id])
    }
    return out
}

// manualRow builds the contribution of one manual platform for an
// asset, or reports that it has none.
func manualRow(p market.PlatformProfile, asset market.Asset, fiat string, cat market.Catalog) (Row, bool) {
    entry, ok := lookupEntry(p, asset, cat)
    if !ok || !entry.Active {
        return Row{}, false
    }

    currency := strings.ToUpper(strings.TrimSpace(entry.Currency))
    if currency == "" {
        currency = strings.ToUpper(fiat)
    }

    // USD-denominated entries for volatile assets are converted to fiat
    // through the platform's own stablecoin quote, never a third party's.
    if currency == "USD" && cat.ClassOf(asset) != market.Stable {
        return convertUSDEntry(p, entry), true
    }

    usd := money.Undetermined()
    if cat.ClassOf(asset) == market.Stable {
        usd = money.Number(1.0)
    }
    return Row{
        SourceID:   p.ID,
        BuyFiat:    entry.Buy,
        SellFiat:   entry.Sell,
        BuyUSD:     usd,
        SellUSD:    usd,
        DirectFiat: true,
    }, true
}

// lookupEntry finds the manual entry for an asset. Fintech platforms
// quote generic currency lines, so stablecoin requests fall back to the
// "usd"/"eur" entry when no asset-specific one exists.
func lookupEntry(p market.PlatformProfile, asset market.Asset, cat market.Catalog) (market.ManualEntry, bool) {
    if e, ok := p.ManualPrices[asset]; ok {
        return e, true
    }
    if p.Category == market.CategoryFintech && cat.ClassOf(asset) == market.Stable {
        key := "usd"
        if asset == "euroc" { key = "eur" }
        if e, ok := p.ManualPrices[key]; ok {
            return e, true
        }
    }
    return market.ManualEntry{}, false
}

// convertUSDEntry multiplies a USD manual price by the platform's own
// stablecoin fiat rate, USDC first, then USDT, then the generic usd
// line. With no active own rate the conversion is undefined and the
// fiat fields carry the sentinel.
func convertUSDEntry(p market.PlatformProfile, entry market.ManualEntry) Row {
    bridgeKey := "usd"
    rate := market.ManualEntry{Buy: money.Undetermined(), Sell: money.Undetermined()}
    for _, key := range []string{"usdc", "usdt", "usd"} {
        if e, ok := p.ManualPrices[key]; ok && e.Active {
            bridgeKey = key
            rate = e
            break
        }
    }
    return Row{
        SourceID:   p.ID,
        BuyFiat:    entry.Buy.Mul(rate.Buy),
        SellFiat:   entry.Sell.Mul(rate.Sell),
        BuyUSD:     entry.Buy,
        SellUSD:    entry.Sell,
        DirectFiat: false,
        BridgeUsed: bridgeKey,
    }
}
