package cryptomkt

import (
    "context"
    "encoding/json"
    "strings"
    "sync"
    "time"

    "cryptospread/internal/bridge"
    "cryptospread/internal/httpx"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
    "golang.org/x/sync/singleflight"
)

type Config struct {
    Name               string
    Endpoint           string
    Fiat               string
    BridgeAssets       []market.Asset
    SnapshotTTLSeconds int
}

// Source quotes assets from CryptoMarket. The v3 ticker endpoint
// returns one flat object keyed by symbol ("BTCCOP", "USDTCOP", ...);
// an absent key is the missing-data signal.
type Source struct {
    cfg    Config
    client *httpx.Client

    mu      sync.RWMutex
    tickers map[string]ticker
    until   time.Time

    sf singleflight.Group
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "cryptomarket" }
    if cfg.Endpoint == "" { cfg.Endpoint = "https://api.exchange.cryptomkt.com/api/3/public/ticker" }
    if cfg.Fiat == "" { cfg.Fiat = "cop" }
    if len(cfg.BridgeAssets) == 0 {
        cfg.BridgeAssets = []market.Asset{"usdc", "usdt", "usd"}
    }
    if cfg.SnapshotTTLSeconds <= 0 { cfg.SnapshotTTLSeconds = 10 }
    return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

type ticker struct {
    Ask json.Number `json:"ask"`
    Bid json.Number `json:"bid"`
}

func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    snap, err := s.snapshot(ctx)
    if err != nil {
        return bridge.Set{}, err
    }
    set := bridge.Set{}
    for _, b := range s.cfg.BridgeAssets {
        t, ok := snap[s.pair(string(b), s.cfg.Fiat)]
        if !ok { continue }
        ask, bid := parsePair(t)
        if ask > 0 && bid > 0 {
            set[b] = market.BridgeQuote{Asset: b, Buy: ask, Sell: bid}
        }
    }
    return set, nil
}

func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    snap, err := s.snapshot(ctx)
    if err != nil {
        return source.Fragment{}, err
    }

    if t, ok := snap[s.pair(asset, s.cfg.Fiat)]; ok {
        ask, bid := parsePair(t)
        var frag source.Fragment
        if ask > 0 { frag.BuyFiat = source.Float(ask) }
        if bid > 0 { frag.SellFiat = source.Float(bid) }
        if frag.BuyFiat != nil && frag.SellFiat != nil {
            return frag, nil
        }
    }

    for _, b := range s.cfg.BridgeAssets {
        t, ok := snap[s.pair(asset, string(b))]
        if !ok { continue }
        ask, bid := parsePair(t)
        frag := source.Fragment{Denominated: b}
        if ask > 0 { frag.BuyUSD = source.Float(ask) }
        if bid > 0 { frag.SellUSD = source.Float(bid) }
        if frag.BuyUSD != nil || frag.SellUSD != nil {
            return frag, nil
        }
    }
    return source.Fragment{}, source.ErrNoData
}

func (s *Source) pair(base, quote string) string {
    return strings.ToUpper(base) + strings.ToUpper(quote)
}

func parsePair(t ticker) (ask, bid float64) {
    if v, err := t.Ask.Float64(); err == nil { ask = v }
    if v, err := t.Bid.Float64(); err == nil { bid = v }
    return ask, bid
}

func (s *Source) snapshot(ctx context.Context) (map[string]ticker, error) {
    s.mu.RLock()
    if s.tickers != nil && time.Now().Before(s.until) {
        snap := s.tickers
        s.mu.RUnlock()
        return snap, nil
    }
    s.mu.RUnlock()

    v, err, _ := s.sf.Do("ticker", func() (any, error) {
        var payload map[string]ticker
        if err := s.client.GetJSON(ctx, s.cfg.Endpoint, &payload); err != nil {
            return nil, err
        }
        s.mu.Lock()
        s.tickers = payload
        s.until = time.Now().Add(time.Duration(s.cfg.SnapshotTTLSeconds) * time.Second)
        s.mu.Unlock()
        return payload, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(map[string]ticker), nil
}
