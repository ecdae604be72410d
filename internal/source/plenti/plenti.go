package plenti

import (
    "context"
    "strconv"
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
    Name            string
    Endpoint        string
    Fiat            string
    RatesTTLSeconds int
}

// Source quotes pegged assets from Plenti's currency converter. Two
// conversions per currency: foreign->fiat yields the sell rate
// directly, fiat->foreign yields the inverse of the buy rate.
// USD-backed stablecoins take the USD pair, euroc the EUR pair. The
// API formats exchangeRate with thousands separators ("3,912.50").
type Source struct {
    cfg    Config
    client *httpx.Client

    mu    sync.RWMutex
    pairs map[string]ratePair // currency -> fiat rate
    until map[string]time.Time

    sf singleflight.Group
}

type ratePair struct {
    buy  float64
    sell float64
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "plenti" }
    if cfg.Endpoint == "" { cfg.Endpoint = "https://prod.somosplenti.com/currency-converter/convert" }
    if cfg.Fiat == "" { cfg.Fiat = "cop" }
    if cfg.RatesTTLSeconds <= 0 { cfg.RatesTTLSeconds = 10 }
    return &Source{
        cfg:    cfg,
        client: hc,
        pairs:  make(map[string]ratePair),
        until:  make(map[string]time.Time),
    }
}

func (s *Source) Name() string { return s.cfg.Name }

func (s *Source) Bridges(ctx context.Context) (bridge.Set, error) {
    return bridge.Set{}, nil
}

func (s *Source) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    currency := peggedCurrency(asset)
    if currency == "" {
        return source.Fragment{}, source.ErrNoData
    }
    pair, err := s.rates(ctx, currency)
    if err != nil {
        return source.Fragment{}, err
    }
    return source.Fragment{
        BuyFiat:  source.Float(pair.buy),
        SellFiat: source.Float(pair.sell),
    }, nil
}

// peggedCurrency maps a stable asset to the currency pair that prices it.
func peggedCurrency(asset market.Asset) string {
    switch strings.ToLower(asset) {
    case "usdt", "usdc":
        return "USD"
    case "euroc":
        return "EUR"
    }
    return ""
}

type convertRequest struct {
    FromCurrency string `json:"fromCurrency"`
    ToCurrency   string `json:"toCurrency"`
}

type convertResponse struct {
    ExchangeRate string `json:"exchangeRate"`
}

func (s *Source) rates(ctx context.Context, currency string) (ratePair, error) {
    s.mu.RLock()
    pair, ok := s.pairs[currency]
    valid := ok && time.Now().Before(s.until[currency])
    s.mu.RUnlock()
    if valid {
        return pair, nil
    }

    v, err, _ := s.sf.Do(currency, func() (any, error) {
        fiat := strings.ToUpper(s.cfg.Fiat)
        foreignToFiat, err := s.convert(ctx, currency, fiat)
        if err != nil {
            return ratePair{}, err
        }
        fiatToForeign, err := s.convert(ctx, fiat, currency)
        if err != nil {
            return ratePair{}, err
        }
        if foreignToFiat <= 0 || fiatToForeign <= 0 {
            return ratePair{}, source.ErrNoData
        }
        pair := ratePair{buy: 1 / fiatToForeign, sell: foreignToFiat}
        s.mu.Lock()
        s.pairs[currency] = pair
        s.until[currency] = time.Now().Add(time.Duration(s.cfg.RatesTTLSeconds) * time.Second)
        s.mu.Unlock()
        return pair, nil
    })
    if err != nil {
        return ratePair{}, err
    }
    return v.(ratePair), nil
}

func (s *Source) convert(ctx context.Context, from, to string) (float64, error) {
    var body convertResponse
    err := s.client.PostJSON(ctx, s.cfg.Endpoint, convertRequest{FromCurrency: from, ToCurrency: to}, &body)
    if err != nil {
        return 0, err
    }
    rate, err := strconv.ParseFloat(strings.ReplaceAll(body.ExchangeRate, ",", ""), 64)
    if err != nil {
        return 0, source.ErrNoData
    }
    return rate, nil
}
