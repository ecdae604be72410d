package bitso

import (
    "context"
    "fmt"
    "strings"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
)

type Config struct {
    Name string
    // Fiat is the local currency side of every book, e.g. "cop".
    Fiat string
    // BridgeAssets are the bridge books probed by Bridges and the
    // fallback books tried by Quote, in priority order.
    BridgeAssets []market.Asset
}

// Source quotes assets from Bitso. Bitso lists some assets directly
// against the local fiat and others only against stablecoin books.
type Source struct {
    cfg    Config
    client *BitsoAPIClient
}

func New(cfg Config, client *BitsoAPIClient) *Source {
    if cfg.Name == "" { cfg.Name = "bitso" }
    if cfg.Fiat == "" { cfg.Fiat = "cop" }
    if len(cfg.BridgeAssets) == 0 {
        cfg.BridgeAssets = []market.Asset{"usdc", "usdt", "usd"}
    }
    return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() string { return s.cfg.Name }

// Bridges probes the fiat book of every configured bridge asset.
// Missing books are simply absent from the set.
func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    set := bridge.Set{}
    var lastErr error
    for _, b := range s.cfg.BridgeAssets {
        book := fmt.Sprintf("%s_%s", b, s.cfg.Fiat)
        t, ok, err := s.client.GetTicker(ctx, book)
        if err != nil {
            lastErr = err
            continue
        }
        if !ok { continue }
        ask, askErr := t.Ask.Float64()
        bid, bidErr := t.Bid.Float64()
        if askErr != nil || bidErr != nil || ask <= 0 || bid <= 0 {
            continue
        }
        set[b] = market.BridgeQuote{Asset: b, Buy: ask, Sell: bid}
    }
    if len(set) == 0 && lastErr != nil {
        return set, lastErr
    }
    return set, nil
}

// Quote tries the direct fiat book first, then the asset's stablecoin
// books in priority order.
func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    asset = strings.ToLower(asset)

    direct := fmt.Sprintf("%s_%s", asset, s.cfg.Fiat)
    t, ok, err := s.client.GetTicker(ctx, direct)
    if err == nil && ok {
        if frag, parsed := fiatFragment(t); parsed {
            return frag, nil
        }
    }
    if err != nil {
        return source.Fragment{}, err
    }

    for _, b := range s.cfg.BridgeAssets {
        book := fmt.Sprintf("%s_%s", asset, b)
        t, ok, err := s.client.GetTicker(ctx, book)
        if err != nil || !ok {
            continue
        }
        ask, askErr := t.Ask.Float64()
        bid, bidErr := t.Bid.Float64()
        frag := source.Fragment{Denominated: b}
        if askErr == nil && ask > 0 { frag.BuyUSD = source.Float(ask) }
        if bidErr == nil && bid > 0 { frag.SellUSD = source.Float(bid) }
        if frag.BuyUSD != nil || frag.SellUSD != nil {
            return frag, nil
        }
    }
    return source.Fragment{}, source.ErrNoData
}

func fiatFragment(t Ticker) (source.Fragment, bool) {
    var frag source.Fragment
    if ask, err := t.Ask.Float64(); err == nil && ask > 0 {
        frag.BuyFiat = source.Float(ask)
    }
    if bid, err := t.Bid.Float64(); err == nil && bid > 0 {
        frag.SellFiat = source.Float(bid)
    }
    return frag, frag.BuyFiat != nil && frag.SellFiat != nil
}
