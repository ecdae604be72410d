package pipeline

import (
    "context"
    "errors"
    "log/slog"
    "sync"
    "time"

    "cryptospread/internal/bridge"
    "cryptospread/internal/compose"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
    "cryptospread/internal/store"
)

// Pipeline runs one aggregation cycle across all configured sources:
// resolve each source's bridge rates, quote every catalog asset, compose
// fiat quotes and upsert them. Failures are isolated per (source, asset);
// one bad key never blocks the rest of the cycle.
type Pipeline struct {
    Sources  []source.Source
    Resolver bridge.Resolver
    Catalog  market.Catalog
    Store    store.QuoteStore
    Log      *slog.Logger

    // MaxConcurrent bounds how many sources fetch at once.
    MaxConcurrent int
}

// Stats summarizes one cycle.
type Stats struct {
    Sources  int
    Upserts  int
    Errors   int
    Duration time.Duration
}

func (p *Pipeline) logger() *slog.Logger {
    if p.Log != nil { return p.Log }
    return slog.Default()
}

// Cycle fetches and persists one full round of quotes.
func (p *Pipeline) Cycle(ctx context.Context) Stats {
    start := time.Now()

    limit := p.MaxConcurrent
    if limit <= 0 { limit = len(p.Sources) }
    if limit <= 0 { limit = 1 }
    sem := make(chan struct{}, limit)

    type result struct {
        upserts int
        errs    int
    }
    ch := make(chan result, len(p.Sources))

    var wg sync.WaitGroup
    for _, s := range p.Sources {
        s := s
        wg.Add(1)
        go func() {
            defer wg.Done()
            sem <- struct{}{}
            defer func() { <-sem }()
            up, errs := p.runSource(ctx, s)
            ch <- result{upserts: up, errs: errs}
        }()
    }
    wg.Wait()
    close(ch)

    stats := Stats{Sources: len(p.Sources)}
    for r := range ch {
        stats.Upserts += r.upserts
        stats.Errors += r.errs
    }
    stats.Duration = time.Since(start)

    p.logger().Info("cycle complete",
        "sources", stats.Sources,
        "upserts", stats.Upserts,
        "errors", stats.Errors,
        "duration", stats.Duration.Round(time.Millisecond))
    return stats
}

func (p *Pipeline) runSource(ctx context.Context, s source.Source) (upserts, errs int) {
    log := p.logger().With("source", s.Name())

    set, err := s.Bridges(ctx)
    if err != nil {
        // Direct-fiat quotes need no bridge and USD quotes still
        // compose via the configured fallback rates.
        log.Warn("bridge fetch failed, using fallback rates", "error", err)
        errs++
        set = bridge.Set{}
    }

    for _, asset := range p.Catalog.All() {
        if ctx.Err() != nil {
            return upserts, errs
        }
        frag, err := s.Quote(ctx, asset)
        if err != nil {
            if errors.Is(err, source.ErrNoData) {
                continue
            }
            log.Warn("quote fetch failed", "asset", asset, "error", err)
            errs++
            continue
        }

        q, err := compose.Build(s.Name(), asset, frag, p.Resolver, set, p.Catalog)
        if err != nil {
            if !errors.Is(err, source.ErrNoData) {
                log.Warn("compose failed", "asset", asset, "error", err)
                errs++
            }
            continue
        }

        if err := p.Store.UpsertQuote(ctx, p.Catalog.ClassOf(asset), q); err != nil {
            log.Error("upsert failed", "asset", asset, "error", err)
            errs++
            continue
        }
        upserts++
    }
    log.Debug("source done", "upserts", upserts, "errors", errs)
    return upserts, errs
}
