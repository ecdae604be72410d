package bridge

import (
    "testing"

    "cryptospread/internal/market"
)

func testResolver() Resolver {
    return Resolver{
        Priority: []market.Asset{"usdc", "usdt", "usd"},
        Fallback: map[market.Asset]Rate{
            "usd":  {Buy: 3900, Sell: 3900},
            "usdt": {Buy: 3900, Sell: 3900},
            "usdc": {Buy: 3900, Sell: 3900},
        },
    }
}

func TestResolve_PriorityOrder(t *testing.T) {
    r := testResolver()
    set := Set{
        "usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940},
        "usdc": market.BridgeQuote{Asset: "usdc", Buy: 3960, Sell: 3930},
    }
    res := r.Resolve(set)
    if res.UsedFallback {
        t.Fatal("should not fall back with present candidates")
    }
    if res.Quote.Asset != "usdc" || res.Quote.Buy != 3960 {
        t.Fatalf("usdc must win over usdt: %+v", res.Quote)
    }
}

func TestResolve_SkipsUnusableCandidate(t *testing.T) {
    r := testResolver()
    set := Set{
        "usdc": market.BridgeQuote{Asset: "usdc", Buy: 0, Sell: 3930},
        "usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940},
    }
    res := r.Resolve(set)
    if res.Quote.Asset != "usdt" {
        t.Fatalf("zero-sided usdc must be skipped: %+v", res.Quote)
    }
}

func TestResolve_EmptySetUsesFallback(t *testing.T) {
    r := testResolver()
    res := r.Resolve(Set{})
    if !res.UsedFallback {
        t.Fatal("empty set must resolve to fallback")
    }
    if res.Quote.Buy != 3900 || res.Quote.Sell != 3900 {
        t.Fatalf("want configured fallback rate, got %+v", res.Quote)
    }
}

func TestResolveAsset_SpecificDenomination(t *testing.T) {
    r := testResolver()
    set := Set{
        "usdc": market.BridgeQuote{Asset: "usdc", Buy: 3960, Sell: 3930},
        "usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940},
    }
    res := r.ResolveAsset(set, "usdt")
    if res.UsedFallback || res.Quote.Asset != "usdt" || res.Quote.Buy != 3950 {
        t.Fatalf("denominated asset must not be substituted: %+v", res.Quote)
    }
}

func TestResolveAsset_MissingFallsBack(t *testing.T) {
    r := testResolver()
    res := r.ResolveAsset(Set{}, "usdt")
    if !res.UsedFallback || res.Quote.Asset != "usdt" || res.Quote.Buy != 3900 {
        t.Fatalf("want usdt fallback, got %+v", res.Quote)
    }
}

func TestFallback_Misconfigured(t *testing.T) {
    r := Resolver{Priority: []market.Asset{"usdc"}, Fallback: map[market.Asset]Rate{"usdc": {Buy: 3800, Sell: 3800}}}
    res := r.ResolveAsset(Set{}, "usdt")
    if !res.UsedFallback || res.Quote.Buy != 3800 {
        t.Fatalf("should reuse a configured priority fallback: %+v", res.Quote)
    }

    empty := Resolver{}
    res = empty.Resolve(Set{})
    if !res.UsedFallback || res.Quote.Buy != 1 || res.Quote.Sell != 1 {
        t.Fatalf("bare resolver must degrade to identity rate: %+v", res.Quote)
    }
}
