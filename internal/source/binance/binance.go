package binance

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
    Name     string
    Endpoint string
    // SymbolMap overrides the default "{ASSET}USDT" book naming.
    SymbolMap map[market.Asset]string
    // SnapshotTTLSeconds caches the full bookTicker payload so one
    // cycle issues a single upstream request for all assets.
    SnapshotTTLSeconds int
}

// Source quotes assets from the Binance spot API. Every pair is
// USDT-denominated; Binance has no local fiat books, so its bridge set
// is always empty and composition falls back to configured rates.
type Source struct {
    cfg    Config
    client *httpx.Client

    mu       sync.RWMutex
    bySymbol map[string]bookTicker
    until    time.Time

    sf singleflight.Group
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "binance" }
    if cfg.Endpoint == "" { cfg.Endpoint = "https://api.binance.com/api/v3/ticker/bookTicker" }
    if cfg.SnapshotTTLSeconds <= 0 { cfg.SnapshotTTLSeconds = 10 }
    if cfg.SymbolMap == nil {
        cfg.SymbolMap = map[market.Asset]string{"euroc": "EURCUSDT"}
    }
    return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    return bridge.Set{}, nil
}

func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    asset = strings.ToLower(asset)
    if asset == "usdt" {
        // the bridge asset itself; pegged by definition on this venue
        return source.Fragment{
            BuyUSD:      source.Float(1.0),
            SellUSD:     source.Float(1.0),
            Denominated: "usdt",
        }, nil
    }

    snap, err := s.snapshot(ctx)
    if err != nil {
        return source.Fragment{}, err
    }
    t, ok := snap[s.symbolFor(asset)]
    if !ok {
        return source.Fragment{}, source.ErrNoData
    }

    frag := source.Fragment{Denominated: "usdt"}
    if v, perr := t.AskPrice.Float64(); perr == nil && v > 0 {
        frag.BuyUSD = source.Float(v)
    }
    if v, perr := t.BidPrice.Float64(); perr == nil && v > 0 {
        frag.SellUSD = source.Float(v)
    }
    if frag.BuyUSD == nil && frag.SellUSD == nil {
        return source.Fragment{}, source.ErrNoData
    }
    return frag, nil
}

func (s *Source) symbolFor(asset market.Asset) string {
    if sym, ok := s.cfg.SymbolMap[asset]; ok {
        return sym
    }
    return strings.ToUpper(asset) + "USDT"
}

type bookTicker struct {
    Symbol   string      `json:"symbol"`
    AskPrice json.Number `json:"askPrice"`
    BidPrice json.Number `json:"bidPrice"`
}

// snapshot returns the cached bookTicker payload, refreshing it at most
// once per TTL window; concurrent refreshes are coalesced.
func (s *Source) snapshot(ctx context.Context) (map[string]bookTicker, error) {
    s.mu.RLock()
    if s.bySymbol != nil && time.Now().Before(s.until) {
        snap := s.bySymbol
        s.mu.RUnlock()
        return snap, nil
    }
    s.mu.RUnlock()

    v, err, _ := s.sf.Do("bookTicker", func() (any, error) {
        var list []bookTicker
        if err := s.client.GetJSON(ctx, s.cfg.Endpoint, &list); err != nil {
            return nil, err
        }
        bySymbol := make(map[string]bookTicker, len(list))
        for _, t := range list {
            bySymbol[t.Symbol] = t
        }
        s.mu.Lock()
        s.bySymbol = bySymbol
        s.until = time.Now().Add(time.Duration(s.cfg.SnapshotTTLSeconds) * time.Second)
        s.mu.Unlock()
        return bySymbol, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(map[string]bookTicker), nil
}
