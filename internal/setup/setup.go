package setup

import (
    "time"

    "cryptospread/internal/bridge"
    "cryptospread/internal/config"
    "cryptospread/internal/httpx"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
    "cryptospread/internal/source/binance"
    "cryptospread/internal/source/bitso"
    "cryptospread/internal/source/buda"
    "cryptospread/internal/source/cryptomkt"
    "cryptospread/internal/source/dolarapi"
    "cryptospread/internal/source/global66"
    "cryptospread/internal/source/plenti"
    "cryptospread/internal/source/ratelimit"
)

// Catalog builds the asset catalog from config, defaulting when empty.
func Catalog(cfg config.Config) market.Catalog {
    cat := market.Catalog{Crypto: cfg.Market.Crypto, Stable: cfg.Market.Stable}
    if len(cat.Crypto) == 0 && len(cat.Stable) == 0 {
        cat = market.DefaultCatalog()
    }
    return cat
}

// Resolver builds the bridge resolver from configured priority and
// fallback rates.
func Resolver(cfg config.Config) bridge.Resolver {
    r := bridge.Resolver{
        Priority: cfg.Market.BridgePriority,
        Fallback: make(map[market.Asset]bridge.Rate, len(cfg.Market.FallbackRates)),
    }
    if len(r.Priority) == 0 {
        r.Priority = []market.Asset{"usdc", "usdt", "usd"}
    }
    for asset, rate := range cfg.Market.FallbackRates {
        r.Fallback[asset] = bridge.Rate{Buy: rate.Buy, Sell: rate.Sell}
    }
    return r
}

// Sources builds every enabled source, each wrapped with its configured
// rate limiter.
func Sources(cfg config.Config, hc *httpx.Client) []source.Source {
    bridges := make([]market.Asset, len(cfg.Market.BridgePriority))
    copy(bridges, cfg.Market.BridgePriority)

    sources := make([]source.Source, 0, 7)

    if cfg.Bitso.Enabled {
        opts := []bitso.BitsoAPIClientOption{bitso.WithHTTPClient(hc.HTTP)}
        if cfg.Bitso.BaseURL != "" {
            opts = append(opts, bitso.WithBaseURL(cfg.Bitso.BaseURL))
        }
        client := bitso.NewBitsoAPIClient(opts...)
        s := bitso.New(bitso.Config{Fiat: cfg.Market.Fiat, BridgeAssets: bridges}, client)
        sources = append(sources, throttle(s, cfg.Bitso.SourceLimits))
    }
    if cfg.Buda.Enabled {
        s := buda.New(buda.Config{BaseURL: cfg.Buda.BaseURL, Fiat: cfg.Market.Fiat}, hc)
        sources = append(sources, throttle(s, cfg.Buda.SourceLimits))
    }
    if cfg.Binance.Enabled {
        symbols := make(map[market.Asset]string, len(cfg.Binance.SymbolMap))
        for k, v := range cfg.Binance.SymbolMap {
            symbols[k] = v
        }
        if len(symbols) == 0 { symbols = nil }
        s := binance.New(binance.Config{
            Endpoint:           cfg.Binance.Endpoint,
            SymbolMap:          symbols,
            SnapshotTTLSeconds: cfg.Binance.SnapshotTTLSeconds,
        }, hc)
        sources = append(sources, throttle(s, cfg.Binance.SourceLimits))
    }
    if cfg.Cryptomkt.Enabled {
        s := cryptomkt.New(cryptomkt.Config{
            Endpoint:           cfg.Cryptomkt.Endpoint,
            Fiat:               cfg.Market.Fiat,
            BridgeAssets:       bridges,
            SnapshotTTLSeconds: cfg.Cryptomkt.SnapshotTTLSeconds,
        }, hc)
        sources = append(sources, throttle(s, cfg.Cryptomkt.SourceLimits))
    }
    if cfg.Global66.Enabled {
        s := global66.New(global66.Config{BaseURL: cfg.Global66.BaseURL, Routes: cfg.Global66.Routes}, hc)
        sources = append(sources, throttle(s, cfg.Global66.SourceLimits))
    }
    if cfg.Plenti.Enabled {
        s := plenti.New(plenti.Config{Endpoint: cfg.Plenti.Endpoint, Fiat: cfg.Market.Fiat}, hc)
        sources = append(sources, throttle(s, cfg.Plenti.SourceLimits))
    }
    if cfg.DolarAPI.Enabled {
        s := dolarapi.New(dolarapi.Config{Endpoint: cfg.DolarAPI.Endpoint}, hc)
        sources = append(sources, throttle(s, cfg.DolarAPI.SourceLimits))
    }
    return sources
}

// throttle wraps a source with a token bucket when RPM is set, otherwise
// with a min-interval gate.
func throttle(s source.Source, limits config.SourceLimits) source.Source {
    if limits.MaxRequestsPerMinute > 0 {
        rate := float64(limits.MaxRequestsPerMinute) / 60.0
        burst := limits.Burst
        if burst <= 0 { burst = 1 }
        return &ratelimit.TokenBucketSource{S: s, TB: ratelimit.NewTokenBucket(rate, burst)}
    }
    if limits.MinRequestIntervalSec > 0 {
        return &ratelimit.MinInterval{S: s, Interval: time.Duration(limits.MinRequestIntervalSec) * time.Second}
    }
    return s
}
