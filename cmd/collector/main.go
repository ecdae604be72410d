package main

import (
    "context"
    "log/slog"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "cryptospread/internal/config"
    "cryptospread/internal/httpx"
    "cryptospread/internal/pipeline"
    "cryptospread/internal/setup"
    "cryptospread/internal/store"
    storememory "cryptospread/internal/store/memory"
    "cryptospread/internal/store/postgres"
)

func main() {
    _ = godotenv.Load()

    log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
    slog.SetDefault(log)

    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        log.Error("config load failed", "error", err)
        os.Exit(1)
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    var quotes store.QuoteStore
    if cfg.Database.DSN != "" {
        pg, err := postgres.Open(ctx, cfg.Database.DSN)
        if err != nil {
            log.Error("postgres open failed", "error", err)
            os.Exit(1)
        }
        defer pg.Close()
        quotes = pg
    } else {
        log.Warn("DATABASE_URL not set, using in-memory store; quotes will not survive restarts")
        quotes = storememory.New()
    }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    sources := setup.Sources(cfg, httpClient)
    if len(sources) == 0 {
        log.Error("no sources enabled")
        os.Exit(1)
    }

    p := &pipeline.Pipeline{
        Sources:       sources,
        Resolver:      setup.Resolver(cfg),
        Catalog:       setup.Catalog(cfg),
        Store:         quotes,
        Log:           log,
        MaxConcurrent: cfg.Collector.MaxConcurrentSources,
    }

    interval := time.Duration(cfg.Collector.IntervalSec) * time.Second
    log.Info("collector starting", "sources", len(sources), "interval", interval)

    // run once immediately, then on the ticker
    p.Cycle(ctx)

    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            log.Info("collector stopping")
            return
        case <-ticker.C:
            p.Cycle(ctx)
        }
    }
}
