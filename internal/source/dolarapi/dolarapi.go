package dolarapi

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
    SnapshotTTLSeconds int
}

// Source quotes pegged assets from DolarAPI's reference rates. The
// cotizaciones feed lists one row per foreign currency; the USD row
// covers the USD-backed stablecoins, the EUR row covers euroc. The
// feed's "venta" is the price the street sells dollars at, which is
// the buy side here.
type Source struct {
    cfg    Config
    client *httpx.Client

    mu    sync.RWMutex
    rows  map[string]cotizacion
    until time.Time

    sf singleflight.Group
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "dolarapp" }
    if cfg.Endpoint == "" { cfg.Endpoint = "https://co.dolarapi.com/v1/cotizaciones" }
    if cfg.SnapshotTTLSeconds <= 0 { cfg.SnapshotTTLSeconds = 10 }
    return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

type cotizacion struct {
    Moneda string      `json:"moneda"`
    Venta  json.Number `json:"venta"`
    Compra json.Number `json:"compra"`
}

func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    return bridge.Set{}, nil
}

func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    currency := peggedCurrency(asset)
    if currency == "" {
        return source.Fragment{}, source.ErrNoData
    }
    rows, err := s.snapshot(ctx)
    if err != nil {
        return source.Fragment{}, err
    }
    row, ok := rows[currency]
    if !ok {
        return source.Fragment{}, source.ErrNoData
    }
    buy, _ := row.Venta.Float64()
    sell, _ := row.Compra.Float64()
    if buy <= 0 {
        return source.Fragment{}, source.ErrNoData
    }
    frag := source.Fragment{BuyFiat: source.Float(buy)}
    if sell > 0 { frag.SellFiat = source.Float(sell) }
    return frag, nil
}

func peggedCurrency(asset market.Asset) string {
    switch strings.ToLower(asset) {
    case "usdt", "usdc":
        return "USD"
    case "euroc":
        return "EUR"
    }
    return ""
}

func (s *Source) snapshot(ctx context.Context) (map[string]cotizacion, error) {
    s.mu.RLock()
    if s.rows != nil && time.Now().Before(s.until) {
        rows := s.rows
        s.mu.RUnlock()
        return rows, nil
    }
    s.mu.RUnlock()

    v, err, _ := s.sf.Do("cotizaciones", func() (any, error) {
        var list []cotizacion
        if err := s.client.GetJSON(ctx, s.cfg.Endpoint, &list); err != nil {
            return nil, err
        }
        rows := make(map[string]cotizacion, len(list))
        for _, c := range list {
            rows[strings.ToUpper(c.Moneda)] = c
        }
        s.mu.Lock()
        s.rows = rows
        s.until = time.Now().Add(time.Duration(s.cfg.SnapshotTTLSeconds) * time.Second)
        s.mu.Unlock()
        return rows, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(map[string]cotizacion), nil
}
