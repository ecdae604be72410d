package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "cryptospread/internal/cache"
    cachememory "cryptospread/internal/cache/memory"
    cacheredis "cryptospread/internal/cache/redis"
    "cryptospread/internal/config"
    "cryptospread/internal/market"
    "cryptospread/internal/merge"
    "cryptospread/internal/setup"
    "cryptospread/internal/store"
    storememory "cryptospread/internal/store/memory"
    "cryptospread/internal/store/postgres"
)

type api struct {
    cfg      config.Config
    catalog  market.Catalog
    quotes   store.QuoteStore
    platforms store.PlatformStore
    prices   cache.PriceCache
    cacheTTL time.Duration
    log      *slog.Logger
}

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
    var platforms store.PlatformStore
    if cfg.Database.DSN != "" {
        pg, err := postgres.Open(ctx, cfg.Database.DSN)
        if err != nil {
            log.Error("postgres open failed", "error", err)
            os.Exit(1)
        }
        defer pg.Close()
        quotes, platforms = pg, pg
    } else {
        log.Warn("DATABASE_URL not set, using in-memory store")
        mem := storememory.New()
        quotes, platforms = mem, mem
    }

    var prices cache.PriceCache
    if cfg.Cache.RedisAddr != "" {
        rc, err := cacheredis.New(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
        if err != nil {
            log.Error("redis connect failed", "error", err)
            os.Exit(1)
        }
        defer rc.Close()
        prices = rc
    } else {
        prices = cachememory.New(cfg.Cache.MaxItems)
    }

    if cfg.Server.AdminToken == "" {
        log.Warn("ADMIN_TOKEN not set, admin endpoints disabled")
    }

    a := &api{
        cfg:       cfg,
        catalog:   setup.Catalog(cfg),
        quotes:    quotes,
        platforms: platforms,
        prices:    prices,
        cacheTTL:  time.Duration(cfg.Server.PriceCacheTTLSec) * time.Second,
        log:       log,
    }

    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte(`{"status":"ok"}`))
    })
    mux.HandleFunc("/api/config", a.handleConfig)
    mux.HandleFunc("/api/platforms", a.handlePlatforms)
    mux.HandleFunc("/api/prices/", a.handlePrices)
    mux.HandleFunc("/api/admin/platforms", a.handleAdminPlatforms)
    mux.HandleFunc("/api/admin/platforms/", a.handleAdminPlatformByID)

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info("server listening", "port", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Error("server failed", "error", err)
            os.Exit(1)
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func (a *api) handleConfig(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "crypto":      a.catalog.Crypto,
        "stablecoins": a.catalog.Stable,
        "fiat":        a.cfg.Market.Fiat,
    })
}

func (a *api) handlePlatforms(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    includeInactive := r.URL.Query().Get("all") == "true"
    list, err := a.platforms.ListPlatforms(r.Context(), includeInactive)
    if err != nil {
        a.log.Error("list platforms failed", "error", err)
        http.Error(w, "storage error", http.StatusInternalServerError)
        return
    }
    byID := make(map[string]market.PlatformProfile, len(list))
    for _, p := range list {
        byID[p.ID] = p
    }
    writeJSON(w, http.StatusOK, byID)
}

func (a *api) handlePrices(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    asset := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/api/prices/"))
    if asset == "" || strings.Contains(asset, "/") {
        http.Error(w, "missing asset", http.StatusBadRequest)
        return
    }

    if rows, ok, err := a.prices.Get(r.Context(), asset); err != nil {
        a.log.Warn("price cache read failed", "asset", asset, "error", err)
    } else if ok {
        writeJSON(w, http.StatusOK, map[string]any{"coin": asset, "prices": rows})
        return
    }

    auto, err := a.quotes.ListQuotes(r.Context(), a.catalog.ClassOf(asset), asset)
    if err != nil {
        a.log.Error("list quotes failed", "asset", asset, "error", err)
        http.Error(w, "storage error", http.StatusInternalServerError)
        return
    }
    platforms, err := a.platforms.ListPlatforms(r.Context(), true)
    if err != nil {
        a.log.Error("list platforms failed", "error", err)
        http.Error(w, "storage error", http.StatusInternalServerError)
        return
    }

    rows := merge.PriceList(asset, a.cfg.Market.Fiat, a.catalog, auto, platforms)
    if err := a.prices.Set(r.Context(), asset, rows, a.cacheTTL); err != nil {
        a.log.Warn("price cache write failed", "asset", asset, "error", err)
    }
    writeJSON(w, http.StatusOK, map[string]any{"coin": asset, "prices": rows})
}

func (a *api) handleAdminPlatforms(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if !a.authorized(r) {
        http.Error(w, "unauthorized", http.StatusUnauthorized)
        return
    }

    var p market.PlatformProfile
    dec := json.NewDecoder(r.Body)
    if err := dec.Decode(&p); err != nil {
        http.Error(w, "invalid JSON body", http.StatusBadRequest)
        return
    }
    p.ID = strings.ToLower(strings.TrimSpace(p.ID))
    if p.ID == "" {
        http.Error(w, "id is required", http.StatusBadRequest)
        return
    }
    p.LastUpdated = time.Now().UTC()

    if err := a.platforms.UpsertPlatform(r.Context(), p); err != nil {
        a.log.Error("upsert platform failed", "id", p.ID, "error", err)
        http.Error(w, "storage error", http.StatusInternalServerError)
        return
    }
    a.invalidatePrices(r.Context())
    writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (a *api) handleAdminPlatformByID(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if !a.authorized(r) {
        http.Error(w, "unauthorized", http.StatusUnauthorized)
        return
    }
    id := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/api/admin/platforms/"))
    if id == "" || strings.Contains(id, "/") {
        http.Error(w, "missing platform id", http.StatusBadRequest)
        return
    }
    if err := a.platforms.DeletePlatform(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
        a.log.Error("delete platform failed", "id", id, "error", err)
        http.Error(w, "storage error", http.StatusInternalServerError)
        return
    }
    a.invalidatePrices(r.Context())
    writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (a *api) authorized(r *http.Request) bool {
    return a.cfg.Server.AdminToken != "" && r.Header.Get("Token") == a.cfg.Server.AdminToken
}

// invalidatePrices drops every cached price list; platform edits change
// the merge result for all assets.
func (a *api) invalidatePrices(ctx context.Context) {
    for _, asset := range a.catalog.All() {
        if err := a.prices.Invalidate(ctx, asset); err != nil {
            a.log.Warn("cache invalidation failed", "asset", asset, "error", err)
        }
    }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Token")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
