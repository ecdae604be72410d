package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "log/slog"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"

    "cryptospread/internal/config"
    "cryptospread/internal/httpx"
    "cryptospread/internal/market"
    "cryptospread/internal/pipeline"
    "cryptospread/internal/setup"
    storememory "cryptospread/internal/store/memory"
)

// fetch runs a single aggregation cycle against an in-memory store and
// prints the composed quotes, for inspecting live upstream data without
// a database.
func main() {
    _ = godotenv.Load()

    var configPath string
    var assetsCSV string
    var timeout int
    flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
    flag.StringVar(&assetsCSV, "assets", "", "comma-separated assets to print (default: whole catalog)")
    flag.IntVar(&timeout, "timeout", 30, "cycle timeout seconds")
    flag.Parse()

    log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
    slog.SetDefault(log)

    cfg, err := config.Load(configPath)
    if err != nil {
        log.Error("config load failed", "error", err)
        os.Exit(1)
    }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    sources := setup.Sources(cfg, httpClient)
    if len(sources) == 0 {
        log.Error("no sources enabled")
        os.Exit(1)
    }

    mem := storememory.New()
    catalog := setup.Catalog(cfg)
    p := &pipeline.Pipeline{
        Sources:       sources,
        Resolver:      setup.Resolver(cfg),
        Catalog:       catalog,
        Store:         mem,
        Log:           log,
        MaxConcurrent: cfg.Collector.MaxConcurrentSources,
    }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()

    stats := p.Cycle(ctx)
    if stats.Upserts == 0 {
        log.Error("no quotes received")
        os.Exit(1)
    }

    assets := catalog.All()
    if assetsCSV != "" {
        assets = splitCSV(assetsCSV)
    }

    out := make(map[string][]market.Quote, len(assets))
    for _, asset := range assets {
        qs, err := mem.ListQuotes(ctx, catalog.ClassOf(asset), strings.ToLower(asset))
        if err != nil || len(qs) == 0 {
            continue
        }
        out[strings.ToLower(asset)] = qs
    }

    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
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
