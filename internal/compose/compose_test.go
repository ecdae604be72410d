package compose

import (
    "errors"
    "testing"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
)

func testResolver() bridge.Resolver {
    return bridge.Resolver{
        Priority: []market.Asset{"usdc", "usdt", "usd"},
        Fallback: map[market.Asset]bridge.Rate{
            "usd":  {Buy: 3900, Sell: 3900},
            "usdt": {Buy: 3900, Sell: 3900},
            "usdc": {Buy: 3900, Sell: 3900},
        },
    }
}

func TestBuild_USDDenominatedViaBridge(t *testing.T) {
    frag := source.Fragment{
        BuyUSD:      source.Float(43250.10),
        SellUSD:     source.Float(43240.00),
        Denominated: "usdt",
    }
    set := bridge.Set{
        "usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940},
    }

    q, err := Build("bitso", "btc", frag, testResolver(), set, market.DefaultCatalog())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if q.BuyFiat != 43250.10*3950 {
        t.Fatalf("buy fiat: want %v, got %v", 43250.10*3950, q.BuyFiat)
    }
    if q.SellFiat != 43240.00*3940 {
        t.Fatalf("sell fiat: want %v, got %v", 43240.00*3940, q.SellFiat)
    }
    if q.DirectFiat {
        t.Fatal("bridge-composed quote must not be marked direct")
    }
    if q.BridgeUsed != "usdt" {
        t.Fatalf("bridge used: want usdt, got %q", q.BridgeUsed)
    }
    if q.SpreadPct != Spread(q.BuyFiat, q.SellFiat) {
        t.Fatalf("spread mismatch: %v", q.SpreadPct)
    }
}

func TestBuild_DenominationNotBorrowed(t *testing.T) {
    // quote denominated in usdt must use the usdt rate even when a
    // higher-priority usdc rate is present
    frag := source.Fragment{
        BuyUSD:      source.Float(100),
        SellUSD:     source.Float(99),
        Denominated: "usdt",
    }
    set := bridge.Set{
        "usdc": market.BridgeQuote{Asset: "usdc", Buy: 5000, Sell: 5000},
        "usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940},
    }
    q, err := Build("bitso", "eth", frag, testResolver(), set, market.DefaultCatalog())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if q.BuyFiat != 100*3950.0 || q.BridgeUsed != "usdt" {
        t.Fatalf("want usdt rate, got %+v", q)
    }
}

func TestBuild_EmptySetUsesConfiguredFallback(t *testing.T) {
    // a source with no fiat books composes against the configured
    // constant, never another source's observation
    frag := source.Fragment{
        BuyUSD:      source.Float(100),
        SellUSD:     source.Float(99),
        Denominated: "usdt",
    }
    q, err := Build("binance", "sol", frag, testResolver(), bridge.Set{}, market.DefaultCatalog())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if q.BuyFiat != 100*3900.0 || q.SellFiat != 99*3900.0 {
        t.Fatalf("want fallback composition, got %+v", q)
    }
}

func TestBuild_DirectFiatPassThrough(t *testing.T) {
    frag := source.Fragment{
        BuyFiat:  source.Float(170_000_000),
        SellFiat: source.Float(169_000_000),
    }
    set := bridge.Set{
        "usdc": market.BridgeQuote{Asset: "usdc", Buy: 4000, Sell: 4000},
    }
    q, err := Build("buda", "btc", frag, testResolver(), set, market.DefaultCatalog())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if !q.DirectFiat {
        t.Fatal("fiat-native quote must be marked direct")
    }
    if q.BuyFiat != 170_000_000 {
        t.Fatalf("fiat side must pass through: %+v", q)
    }
    if q.BuyUSD != 170_000_000/4000.0 {
        t.Fatalf("usd derived from own bridge: %+v", q)
    }
}

func TestBuild_DirectStableAssumesPeg(t *testing.T) {
    frag := source.Fragment{
        BuyFiat:  source.Float(3950),
        SellFiat: source.Float(3940),
    }
    q, err := Build("global66", "usdt", frag, testResolver(), bridge.Set{}, market.DefaultCatalog())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if q.BuyUSD != 1.0 || q.SellUSD != 1.0 {
        t.Fatalf("stable with no bridge books must assume the peg: %+v", q)
    }
}

func TestBuild_EmptyFragment(t *testing.T) {
    _, err := Build("bitso", "btc", source.Fragment{}, testResolver(), bridge.Set{}, market.DefaultCatalog())
    if !errors.Is(err, source.ErrNoData) {
        t.Fatalf("want ErrNoData, got %v", err)
    }
}

func TestSpread(t *testing.T) {
    if got := Spread(170_837_895, 170_365_600); got != 0.28 {
        t.Fatalf("want 0.28, got %v", got)
    }
    if got := Spread(0, 100); got != 0 {
        t.Fatalf("zero buy must yield zero spread, got %v", got)
    }
    if got := Spread(100, 100); got != 0 {
        t.Fatalf("equal sides: want 0, got %v", got)
    }
}
