package config

import (
    "os"
    "path/filepath"
    "testing"
)

func TestLoad_Defaults(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    if err != nil {
        t.Fatalf("missing file must fall back to defaults: %v", err)
    }
    if cfg.Server.Port != "8080" || cfg.Market.Fiat != "cop" {
        t.Fatalf("unexpected defaults: %+v", cfg)
    }
    if len(cfg.Market.BridgePriority) != 3 || cfg.Market.BridgePriority[0] != "usdc" {
        t.Fatalf("unexpected bridge priority: %+v", cfg.Market.BridgePriority)
    }
    if cfg.Market.FallbackRates["usd"].Buy != 3900 {
        t.Fatalf("unexpected fallback rates: %+v", cfg.Market.FallbackRates)
    }
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    body := `{
        "server": {"port": "9999"},
        "market": {"fiat": "mxn", "fallback_rates": {"usd": {"buy": 17.5, "sell": 17.4}}},
        "binance": {"enabled": false}
    }`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
        t.Fatalf("write config: %v", err)
    }

    cfg, err := Load(path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if cfg.Server.Port != "9999" || cfg.Market.Fiat != "mxn" {
        t.Fatalf("file values not applied: %+v", cfg)
    }
    if cfg.Market.FallbackRates["usd"].Sell != 17.4 {
        t.Fatalf("fallback rates not applied: %+v", cfg.Market.FallbackRates)
    }
    if cfg.Binance.Enabled {
        t.Fatal("binance should be disabled by file")
    }
}

func TestLoad_EnvOverrides(t *testing.T) {
    t.Setenv("PORT", "7070")
    t.Setenv("DATABASE_URL", "postgres://localhost/prices")
    t.Setenv("ADMIN_TOKEN", "hunter2")
    t.Setenv("BITSO_ENABLED", "false")
    t.Setenv("FALLBACK_USD_RATE", "4100")

    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if cfg.Server.Port != "7070" || cfg.Database.DSN != "postgres://localhost/prices" || cfg.Server.AdminToken != "hunter2" {
        t.Fatalf("env not applied: %+v", cfg)
    }
    if cfg.Bitso.Enabled {
        t.Fatal("BITSO_ENABLED=false must disable the source")
    }
    if cfg.Market.FallbackRates["usdt"].Buy != 4100 {
        t.Fatalf("fallback override not applied: %+v", cfg.Market.FallbackRates)
    }
}
