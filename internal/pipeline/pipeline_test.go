package pipeline

import (
    "context"
    "errors"
    "testing"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
    "cryptospread/internal/store/memory"
)

type fakeSource struct {
    name    string
    set     bridge.Set
    setErr  error
    quotes  map[market.Asset]source.Fragment
    quoteErr map[market.Asset]error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Bridges(ctx context.Context) (bridge.Set, error) {
    if f.setErr != nil { return bridge.Set{}, f.setErr }
    if f.set == nil { return bridge.Set{}, nil }
    return f.set, nil
}

func (f *fakeSource) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    if err, ok := f.quoteErr[asset]; ok {
        return source.Fragment{}, err
    }
    frag, ok := f.quotes[asset]
    if !ok {
        return source.Fragment{}, source.ErrNoData
    }
    return frag, nil
}

func testCatalog() market.Catalog {
    return market.Catalog{Crypto: []market.Asset{"btc", "eth"}, Stable: []market.Asset{"usdt"}}
}

func testResolver() bridge.Resolver {
    return bridge.Resolver{
        Priority: []market.Asset{"usdc", "usdt", "usd"},
        Fallback: map[market.Asset]bridge.Rate{"usd": {Buy: 3900, Sell: 3900}},
    }
}

func TestCycle_FailureIsolation(t *testing.T) {
    boom := errors.New("upstream 500")
    good := &fakeSource{
        name: "good",
        set:  bridge.Set{"usdt": market.BridgeQuote{Asset: "usdt", Buy: 3950, Sell: 3940}},
        quotes: map[market.Asset]source.Fragment{
            "btc":  {BuyUSD: source.Float(43250.10), SellUSD: source.Float(43240), Denominated: "usdt"},
            "usdt": {BuyFiat: source.Float(3950), SellFiat: source.Float(3940)},
        },
        quoteErr: map[market.Asset]error{"eth": boom},
    }
    bad := &fakeSource{name: "bad", setErr: boom}

    mem := memory.New()
    p := &Pipeline{
        Sources:  []source.Source{good, bad},
        Resolver: testResolver(),
        Catalog:  testCatalog(),
        Store:    mem,
    }

    stats := p.Cycle(context.Background())
    if stats.Upserts != 2 {
        t.Fatalf("want 2 upserts from the healthy source, got %+v", stats)
    }
    if stats.Errors != 2 {
        t.Fatalf("want 2 recorded errors (bad source + eth), got %+v", stats)
    }

    btc, err := mem.ListQuotes(context.Background(), market.Volatile, "btc")
    if err != nil || len(btc) != 1 {
        t.Fatalf("btc quote must survive sibling failures: %v %+v", err, btc)
    }
    if btc[0].BridgeUsed != "usdt" || btc[0].DirectFiat {
        t.Fatalf("unexpected composition: %+v", btc[0])
    }
}

func TestCycle_BridgeFailureKeepsQuotes(t *testing.T) {
    s := &fakeSource{
        name:   "flaky",
        setErr: errors.New("order book down"),
        quotes: map[market.Asset]source.Fragment{
            "btc":  {BuyUSD: source.Float(43250.10), SellUSD: source.Float(43240), Denominated: "usdt"},
            "usdt": {BuyFiat: source.Float(3950), SellFiat: source.Float(3940)},
        },
    }
    mem := memory.New()
    p := &Pipeline{
        Sources:  []source.Source{s},
        Resolver: testResolver(),
        Catalog:  testCatalog(),
        Store:    mem,
    }

    stats := p.Cycle(context.Background())
    if stats.Upserts != 2 {
        t.Fatalf("quotes must survive a bridge fetch failure: %+v", stats)
    }
    if stats.Errors != 1 {
        t.Fatalf("the bridge failure is still counted: %+v", stats)
    }

    usdt, err := mem.ListQuotes(context.Background(), market.Stable, "usdt")
    if err != nil || len(usdt) != 1 || !usdt[0].DirectFiat {
        t.Fatalf("direct-fiat quote needs no bridge: %v %+v", err, usdt)
    }
    btc, err := mem.ListQuotes(context.Background(), market.Volatile, "btc")
    if err != nil || len(btc) != 1 {
        t.Fatalf("btc must compose via the fallback rate: %v %+v", err, btc)
    }
    if btc[0].BuyFiat != 43250.10*3900 {
        t.Fatalf("want the configured fallback rate applied, got %+v", btc[0])
    }
}

func TestCycle_Idempotent(t *testing.T) {
    s := &fakeSource{
        name: "solo",
        quotes: map[market.Asset]source.Fragment{
            "btc": {BuyUSD: source.Float(100), SellUSD: source.Float(99), Denominated: "usdt"},
        },
    }
    mem := memory.New()
    p := &Pipeline{
        Sources:  []source.Source{s},
        Resolver: testResolver(),
        Catalog:  testCatalog(),
        Store:    mem,
    }

    p.Cycle(context.Background())
    p.Cycle(context.Background())

    qs, err := mem.ListQuotes(context.Background(), market.Volatile, "btc")
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(qs) != 1 {
        t.Fatalf("repeated cycles must replace, not append: %+v", qs)
    }
}

func TestCycle_BoundedConcurrencyStillCompletes(t *testing.T) {
    sources := make([]source.Source, 0, 5)
    for _, name := range []string{"a", "b", "c", "d", "e"} {
        sources = append(sources, &fakeSource{
            name: name,
            quotes: map[market.Asset]source.Fragment{
                "usdt": {BuyFiat: source.Float(3950), SellFiat: source.Float(3940)},
            },
        })
    }
    mem := memory.New()
    p := &Pipeline{
        Sources:       sources,
        Resolver:      testResolver(),
        Catalog:       testCatalog(),
        Store:         mem,
        MaxConcurrent: 2,
    }

    stats := p.Cycle(context.Background())
    if stats.Upserts != 5 {
        t.Fatalf("every source must contribute: %+v", stats)
    }
    qs, _ := mem.ListQuotes(context.Background(), market.Stable, "usdt")
    if len(qs) != 5 {
        t.Fatalf("want 5 usdt quotes, got %d", len(qs))
    }
}
