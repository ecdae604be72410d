package buda

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"

    "cryptospread/internal/bridge"
    "cryptospread/internal/httpx"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
)

type Config struct {
    Name         string
    BaseURL      string
    Fiat         string
    BridgeAssets []market.Asset
}

// Source quotes assets from Buda. Markets are named "{asset}-{fiat}" and
// the ticker reports best ask/bid as [price, amount] tuples; an empty
// tuple array means the book has no orders.
type Source struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "buda" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://www.buda.com" }
    if cfg.Fiat == "" { cfg.Fiat = "cop" }
    if len(cfg.BridgeAssets) == 0 { cfg.BridgeAssets = []market.Asset{"usdc"} }
    return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

type apiResponse struct {
    Ticker struct {
        MinAsk []json.Number `json:"min_ask"`
        MaxBid []json.Number `json:"max_bid"`
    } `json:"ticker"`
}

func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    set := bridge.Set{}
    var lastErr error
    for _, b := range s.cfg.BridgeAssets {
        ask, bid, err := s.ticker(ctx, string(b))
        if err != nil {
            if err != source.ErrNoData { lastErr = err }
            continue
        }
        if ask > 0 && bid > 0 {
            set[b] = market.BridgeQuote{Asset: b, Buy: ask, Sell: bid}
        }
    }
    if len(set) == 0 && lastErr != nil {
        return set, lastErr
    }
    return set, nil
}

func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    ask, bid, err := s.ticker(ctx, strings.ToLower(asset))
    if err != nil {
        return source.Fragment{}, err
    }
    var frag source.Fragment
    if ask > 0 { frag.BuyFiat = source.Float(ask) }
    if bid > 0 { frag.SellFiat = source.Float(bid) }
    if frag.BuyFiat == nil && frag.SellFiat == nil {
        return source.Fragment{}, source.ErrNoData
    }
    return frag, nil
}

func (s *Source) ticker(ctx context.Context, asset string) (ask, bid float64, err error) {
    url := fmt.Sprintf("%s/api/v2/markets/%s-%s/ticker", s.cfg.BaseURL, asset, s.cfg.Fiat)
    var body apiResponse
    if err := s.client.GetJSON(ctx, url, &body); err != nil {
        return 0, 0, err
    }
    if len(body.Ticker.MinAsk) == 0 || len(body.Ticker.MaxBid) == 0 {
        return 0, 0, source.ErrNoData
    }
    // tuples are [price, amount]; a price that fails to parse degrades
    // that side only
    if v, perr := body.Ticker.MinAsk[0].Float64(); perr == nil { ask = v }
    if v, perr := body.Ticker.MaxBid[0].Float64(); perr == nil { bid = v }
    if ask == 0 && bid == 0 {
        return 0, 0, source.ErrNoData
    }
    return ask, bid, nil
}
