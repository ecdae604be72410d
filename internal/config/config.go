package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
    AdminToken        string `json:"admin_token"`
    // PriceCacheTTLSec controls how long merged price lists are served
    // from cache before the store is consulted again.
    PriceCacheTTLSec int `json:"price_cache_ttl_sec"`
}

type Database struct {
    DSN string `json:"dsn"`
}

type Cache struct {
    RedisAddr     string `json:"redis_addr"`
    RedisPassword string `json:"redis_password"`
    RedisDB       int    `json:"redis_db"`
    MaxItems      int    `json:"max_items"`
}

type Collector struct {
    IntervalSec          int `json:"interval_sec"`
    MaxConcurrentSources int `json:"max_concurrent_sources"`
}

// FallbackRate is the configured bridge rate used when a source exposes
// no usable bridge book of its own.
type FallbackRate struct {
    Buy  float64 `json:"buy"`
    Sell float64 `json:"sell"`
}

type Market struct {
    Crypto []string `json:"crypto"`
    Stable []string `json:"stable"`
    Fiat   string   `json:"fiat"`
    // BridgePriority orders bridge candidates during resolution.
    BridgePriority []string                `json:"bridge_priority"`
    FallbackRates  map[string]FallbackRate `json:"fallback_rates"`
}

// SourceLimits is shared throttling config for one upstream source.
type SourceLimits struct {
    Enabled               bool `json:"enabled"`
    MaxRequestsPerMinute  int  `json:"max_requests_per_minute"`
    MinRequestIntervalSec int  `json:"min_request_interval_sec"`
    Burst                 int  `json:"burst"`
}

type Bitso struct {
    SourceLimits
    BaseURL string `json:"base_url"`
}

type Buda struct {
    SourceLimits
    BaseURL string `json:"base_url"`
}

type Binance struct {
    SourceLimits
    Endpoint           string            `json:"endpoint"`
    SymbolMap          map[string]string `json:"symbol_map"`
    SnapshotTTLSeconds int               `json:"snapshot_ttl_sec"`
}

type Cryptomkt struct {
    SourceLimits
    Endpoint           string `json:"endpoint"`
    SnapshotTTLSeconds int    `json:"snapshot_ttl_sec"`
}

type Global66 struct {
    SourceLimits
    BaseURL string         `json:"base_url"`
    Routes  map[string]int `json:"routes"`
}

type Plenti struct {
    SourceLimits
    Endpoint string `json:"endpoint"`
}

type DolarAPI struct {
    SourceLimits
    Endpoint string `json:"endpoint"`
}

type Config struct {
    Server    Server    `json:"server"`
    Database  Database  `json:"database"`
    Cache     Cache     `json:"cache"`
    Collector Collector `json:"collector"`
    Market    Market    `json:"market"`
    Bitso     Bitso     `json:"bitso"`
    Buda      Buda      `json:"buda"`
    Binance   Binance   `json:"binance"`
    Cryptomkt Cryptomkt `json:"cryptomkt"`
    Global66  Global66  `json:"global66"`
    Plenti    Plenti    `json:"plenti"`
    DolarAPI  DolarAPI  `json:"dolarapi"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10, PriceCacheTTLSec: 15},
        Cache:  Cache{MaxItems: 64},
        Collector: Collector{
            IntervalSec:          60,
            MaxConcurrentSources: 4,
        },
        Market: Market{
            Crypto:         []string{"btc", "bch", "eth", "sol", "ltc"},
            Stable:         []string{"usdt", "usdc", "euroc"},
            Fiat:           "cop",
            BridgePriority: []string{"usdc", "usdt", "usd"},
            FallbackRates: map[string]FallbackRate{
                "usd":  {Buy: 3900, Sell: 3900},
                "usdt": {Buy: 3900, Sell: 3900},
                "usdc": {Buy: 3900, Sell: 3900},
            },
        },
        Bitso:     Bitso{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 60, Burst: 10}},
        Buda:      Buda{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 60, Burst: 10}},
        Binance:   Binance{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 60, Burst: 5}, SnapshotTTLSeconds: 10},
        Cryptomkt: Cryptomkt{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 60, Burst: 5}, SnapshotTTLSeconds: 10},
        Global66:  Global66{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 30, Burst: 4}},
        Plenti:    Plenti{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 30, Burst: 4}},
        DolarAPI:  DolarAPI{SourceLimits: SourceLimits{Enabled: true, MaxRequestsPerMinute: 30, Burst: 4}},
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("ADMIN_TOKEN"); v != "" { cfg.Server.AdminToken = v }
    if v := os.Getenv("PRICE_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Server.PriceCacheTTLSec = x }
    }

    if v := os.Getenv("DATABASE_URL"); v != "" { cfg.Database.DSN = v }
    if v := os.Getenv("REDIS_ADDR"); v != "" { cfg.Cache.RedisAddr = v }
    if v := os.Getenv("REDIS_PASSWORD"); v != "" { cfg.Cache.RedisPassword = v }
    if v := os.Getenv("REDIS_DB"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Cache.RedisDB = x }
    }

    if v := os.Getenv("COLLECTOR_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Collector.IntervalSec = x }
    }
    if v := os.Getenv("COLLECTOR_MAX_CONCURRENT"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Collector.MaxConcurrentSources = x }
    }

    if v := os.Getenv("FIAT_CURRENCY"); v != "" { cfg.Market.Fiat = strings.ToLower(v) }
    if v := os.Getenv("BRIDGE_PRIORITY"); v != "" { cfg.Market.BridgePriority = splitCSV(v) }
    if v := os.Getenv("FALLBACK_USD_RATE"); v != "" {
        var x float64
        fmt.Sscanf(v, "%f", &x)
        if x > 0 {
            for _, a := range []string{"usd", "usdt", "usdc"} {
                cfg.Market.FallbackRates[a] = FallbackRate{Buy: x, Sell: x}
            }
        }
    }

    applySourceEnv("BITSO", &cfg.Bitso.SourceLimits)
    applySourceEnv("BUDA", &cfg.Buda.SourceLimits)
    applySourceEnv("BINANCE", &cfg.Binance.SourceLimits)
    applySourceEnv("CRYPTOMKT", &cfg.Cryptomkt.SourceLimits)
    applySourceEnv("GLOBAL66", &cfg.Global66.SourceLimits)
    applySourceEnv("PLENTI", &cfg.Plenti.SourceLimits)
    applySourceEnv("DOLARAPI", &cfg.DolarAPI.SourceLimits)
}

func applySourceEnv(prefix string, s *SourceLimits) {
    if v := os.Getenv(prefix + "_ENABLED"); v != "" {
        switch strings.ToLower(v) {
        case "1", "true", "yes", "y": s.Enabled = true
        case "0", "false", "no", "n": s.Enabled = false
        }
    }
    if v := os.Getenv(prefix + "_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { s.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv(prefix + "_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { s.MinRequestIntervalSec = x }
    }
    if v := os.Getenv(prefix + "_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { s.Burst = x }
    }
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
