package market

import (
    "strings"
    "time"

    "cryptospread/internal/money"
)

// Asset is a lower-case asset identifier from the configured catalog.
type Asset = string

// Class partitions the catalog: market-priced crypto vs pegged stablecoins.
// Class decides which price table a quote is routed to.
type Class int

const (
    Volatile Class = iota
    Stable
)

// Catalog is the fixed asset configuration for one deployment.
type Catalog struct {
    Crypto []Asset
    Stable []Asset
}

func DefaultCatalog() Catalog {
    return Catalog{
        Crypto: []Asset{"btc", "bch", "eth", "sol", "ltc"},
        Stable: []Asset{"usdt", "usdc", "euroc"},
    }
}

// All returns crypto followed by stable assets.
func (c Catalog) All() []Asset {
    out := make([]Asset, 0, len(c.Crypto)+len(c.Stable))
    out = append(out, c.Crypto...)
    out = append(out, c.Stable...)
    return out
}

func (c Catalog) ClassOf(a Asset) Class {
    for _, s := range c.Stable {
        if strings.EqualFold(s, a) { return Stable }
    }
    return Volatile
}

func (c Catalog) Contains(a Asset) bool {
    for _, x := range c.All() {
        if strings.EqualFold(x, a) { return true }
    }
    return false
}

// BridgeQuote is the fiat price of one unit of a bridge asset, observed
// at the source that needs it. Recomputed every cycle, never persisted.
type BridgeQuote struct {
    Asset Asset
    Buy   float64
    Sell  float64
}

// Quote is one normalized automated price record. Identity is
// (SourceID, Asset); a new cycle's quote replaces the previous one.
type Quote struct {
    SourceID   string  `json:"exchange"`
    Asset      Asset   `json:"coin"`
    BuyFiat    float64 `json:"buy_cop"`
    SellFiat   float64 `json:"sell_cop"`
    BuyUSD     float64 `json:"buy_usd"`
    SellUSD    float64 `json:"sell_usd"`
    SpreadPct  float64 `json:"spread"`
    DirectFiat bool    `json:"direct_cop"`
    BridgeUsed Asset   `json:"usd_bridge"`
}

// ManualEntry is one operator-entered price line inside a platform
// profile. Buy and Sell may carry the "N.D." sentinel.
type ManualEntry struct {
    Buy      money.Value `json:"buy"`
    Sell     money.Value `json:"sell"`
    Currency string      `json:"currency"`
    Active   bool        `json:"active"`
}

// PlatformProfile is operator-managed metadata for a platform, manual
// or automated. Inactive platforms are excluded from every served list.
type PlatformProfile struct {
    ID               string                 `json:"id"`
    Name             string                 `json:"name"`
    Category         string                 `json:"category"` // "exchange" or "fintech"
    LogoURL          string                 `json:"logo_url"`
    Funding          string                 `json:"funding"`
    Trading          string                 `json:"trading"`
    Withdraw         string                 `json:"withdraw"`
    DepositNetworks  string                 `json:"deposit_networks"`
    WithdrawNetworks string                 `json:"withdraw_networks"`
    ManualPrices     map[string]ManualEntry `json:"manual_prices"`
    IsManual         bool                   `json:"is_manual"`
    IsActive         bool                   `json:"is_active"`
    LastUpdated      time.Time              `json:"last_updated"`
}

const (
    CategoryExchange = "exchange"
    CategoryFintech  = "fintech"
)
