package merge

import (
    "testing"

    "cryptospread/internal/market"
    "cryptospread/internal/money"
)

func platform(id string, manual bool, prices map[string]market.ManualEntry) market.PlatformProfile {
    return market.PlatformProfile{
        ID:           id,
        Name:         id,
        Category:     market.CategoryExchange,
        ManualPrices: prices,
        IsManual:     manual,
        IsActive:     true,
    }
}

func TestPriceList_InactivePlatformSuppressed(t *testing.T) {
    auto := []market.Quote{
        {SourceID: "bitso", Asset: "btc", BuyFiat: 100, SellFiat: 99},
        {SourceID: "ghost", Asset: "btc", BuyFiat: 200, SellFiat: 199},
    }
    platforms := []market.PlatformProfile{platform("bitso", false, nil)}

    rows := PriceList("btc", "cop", market.DefaultCatalog(), auto, platforms)
    if len(rows) != 1 || rows[0].SourceID != "bitso" {
        t.Fatalf("unknown/inactive platforms must be dropped: %+v", rows)
    }
}

func TestPriceList_ManualOverridesAutomated(t *testing.T) {
    auto := []market.Quote{
        {SourceID: "wallet", Asset: "usdt", BuyFiat: 3950, SellFiat: 3940},
    }
    platforms := []market.PlatformProfile{
        platform("wallet", true, map[string]market.ManualEntry{
            "usdt": {Buy: money.Number(4000), Sell: money.Number(3990), Active: true},
        }),
    }

    rows := PriceList("usdt", "cop", market.DefaultCatalog(), auto, platforms)
    if len(rows) != 1 {
        t.Fatalf("manual entry must replace, not duplicate: %+v", rows)
    }
    if buy, _ := rows[0].BuyFiat.Float(); buy != 4000 {
        t.Fatalf("manual price must win: %+v", rows[0])
    }
    if !rows[0].DirectFiat {
        t.Fatal("fiat manual entry is a direct quote")
    }
}

func TestPriceList_USDEntryConvertedThroughOwnStablecoin(t *testing.T) {
    platforms := []market.PlatformProfile{
        platform("broker", true, map[string]market.ManualEntry{
            "btc":  {Buy: money.Undetermined(), Sell: money.Number(4000), Currency: "USD", Active: true},
            "usdc": {Buy: money.Number(3900), Sell: money.Number(3890), Active: true},
        }),
    }

    rows := PriceList("btc", "cop", market.DefaultCatalog(), nil, platforms)
    if len(rows) != 1 {
        t.Fatalf("want one row, got %+v", rows)
    }
    row := rows[0]
    if !row.BuyFiat.IsUndetermined() {
        t.Fatalf("sentinel buy must propagate: %+v", row)
    }
    if sell, _ := row.SellFiat.Float(); sell != 15_560_000 {
        t.Fatalf("sell: want 4000*3890, got %+v", row.SellFiat)
    }
    if row.BridgeUsed != "usdc" || row.DirectFiat {
        t.Fatalf("conversion must record the own usdc bridge: %+v", row)
    }
}

func TestPriceList_USDEntryWithoutOwnRateIsUndetermined(t *testing.T) {
    platforms := []market.PlatformProfile{
        platform("broker", true, map[string]market.ManualEntry{
            "btc": {Buy: money.Number(43000), Sell: money.Number(42900), Currency: "USD", Active: true},
            // usdt entry exists but is switched off
            "usdt": {Buy: money.Number(3900), Sell: money.Number(3890), Active: false},
        }),
    }

    rows := PriceList("btc", "cop", market.DefaultCatalog(), nil, platforms)
    if len(rows) != 1 {
        t.Fatalf("want one row, got %+v", rows)
    }
    row := rows[0]
    if !row.BuyFiat.IsUndetermined() || !row.SellFiat.IsUndetermined() {
        t.Fatalf("no active own rate: fiat must be sentinel, got %+v", row)
    }
    if buy, _ := row.BuyUSD.Float(); buy != 43000 {
        t.Fatalf("usd side passes through: %+v", row)
    }
}

func TestPriceList_FintechFallsBackToCurrencyLine(t *testing.T) {
    p := platform("fintech1", true, map[string]market.ManualEntry{
        "usd": {Buy: money.Number(3960), Sell: money.Number(3950), Active: true},
    })
    p.Category = market.CategoryFintech

    rows := PriceList("usdc", "cop", market.DefaultCatalog(), nil, []market.PlatformProfile{p})
    if len(rows) != 1 {
        t.Fatalf("fintech usd line must serve usdc: %+v", rows)
    }
    if buy, _ := rows[0].BuyFiat.Float(); buy != 3960 {
        t.Fatalf("unexpected row: %+v", rows[0])
    }
    if usd, _ := rows[0].BuyUSD.Float(); usd != 1.0 {
        t.Fatalf("stable manual entry assumes peg: %+v", rows[0])
    }
}

func TestPriceList_InactiveEntryContributesNothing(t *testing.T) {
    platforms := []market.PlatformProfile{
        platform("wallet", true, map[string]market.ManualEntry{
            "usdt": {Buy: money.Number(4000), Sell: money.Number(3990), Active: false},
        }),
    }
    rows := PriceList("usdt", "cop", market.DefaultCatalog(), nil, platforms)
    if len(rows) != 0 {
        t.Fatalf("inactive entry must contribute nothing: %+v", rows)
    }
}

func TestPriceList_DuplicatePlatformDeduped(t *testing.T) {
    p := platform("wallet", true, map[string]market.ManualEntry{
        "usdt": {Buy: money.Number(4000), Sell: money.Number(3990), Active: true},
    })
    rows := PriceList("usdt", "cop", market.DefaultCatalog(), nil, []market.PlatformProfile{p, p})
    if len(rows) != 1 {
        t.Fatalf("same platform listed twice must contribute once: %+v", rows)
    }
}
