package global66

import (
    "context"
    "encoding/json"
    "fmt"
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
    Name    string
    BaseURL string
    // Routes maps a currency code to its Global66 route id.
    Routes             map[string]int
    RatesTTLSeconds    int
}

// Source derives fiat exchange rates from Global66's public remittance
// quote API. It only serves pegged assets: USD-backed stablecoins take
// the USD<->fiat rate, euroc the EUR<->fiat rate. Rates are inferred
// from round-trip quotes: selling 1000 units of the foreign currency
// and buying with one million fiat.
type Source struct {
    cfg    Config
    client *httpx.Client

    mu    sync.RWMutex
    rates map[string]ratePair // currency -> fiat rate
    until map[string]time.Time

    sf singleflight.Group
}

type ratePair struct {
    buy  float64
    sell float64
}

func New(cfg Config, hc *httpx.Client) *Source {
    if cfg.Name == "" { cfg.Name = "global66" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://api.global66.com" }
    if cfg.Routes == nil {
        cfg.Routes = map[string]int{"usd": 287, "eur": 286, "cop": 291}
    }
    if cfg.RatesTTLSeconds <= 0 { cfg.RatesTTLSeconds = 10 }
    return &Source{
        cfg:    cfg,
        client: hc,
        rates:  make(map[string]ratePair),
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
    pair, err := s.rate(ctx, currency)
    if err != nil {
        return source.Fragment{}, err
    }
    return source.Fragment{
        BuyFiat:  source.Float(pair.buy),
        SellFiat: source.Float(pair.sell),
    }, nil
}

// peggedCurrency maps a stable asset to the fiat currency it tracks.
func peggedCurrency(asset market.Asset) string {
    switch strings.ToLower(asset) {
    case "usdt", "usdc":
        return "usd"
    case "euroc":
        return "eur"
    }
    return ""
}

type quoteResponse struct {
    QuoteData struct {
        DestinationAmount json.Number `json:"destinationAmount"`
    } `json:"quoteData"`
}

func (s *Source) rate(ctx context.Context, currency string) (ratePair, error) {
    s.mu.RLock()
    pair, ok := s.rates[currency]
    valid := ok && time.Now().Before(s.until[currency])
    s.mu.RUnlock()
    if valid {
        return pair, nil
    }

    v, err, _ := s.sf.Do(currency, func() (any, error) {
        foreign, ok := s.cfg.Routes[currency]
        fiat, ok2 := s.cfg.Routes["cop"]
        if !ok || !ok2 {
            return ratePair{}, source.ErrNoData
        }

        // selling 1000 foreign units tells us the sell rate
        sellAmount, err := s.destinationAmount(ctx, foreign, fiat, 1000)
        if err != nil {
            return ratePair{}, err
        }
        // buying with 1M fiat tells us the buy rate
        buyAmount, err := s.destinationAmount(ctx, fiat, foreign, 1_000_000)
        if err != nil {
            return ratePair{}, err
        }
        if sellAmount <= 0 || buyAmount <= 0 {
            return ratePair{}, source.ErrNoData
        }

        pair := ratePair{
            buy:  1_000_000 / buyAmount,
            sell: sellAmount / 1000,
        }
        s.mu.Lock()
        s.rates[currency] = pair
        s.until[currency] = time.Now().Add(time.Duration(s.cfg.RatesTTLSeconds) * time.Second)
        s.mu.Unlock()
        return pair, nil
    })
    if err != nil {
        return ratePair{}, err
    }
    return v.(ratePair), nil
}

func (s *Source) destinationAmount(ctx context.Context, origin, destination int, amount int) (float64, error) {
    url := fmt.Sprintf("%s/quote/public?originRoute=%d&destinationRoute=%d&amount=%d&way=origin&product=EXCHANGE",
        s.cfg.BaseURL, origin, destination, amount)
    var body quoteResponse
    if err := s.client.GetJSON(ctx, url, &body); err != nil {
        return 0, err
    }
    v, err := body.QuoteData.DestinationAmount.Float64()
    if err != nil {
        return 0, source.ErrNoData
    }
    return v, nil
}
