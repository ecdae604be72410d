package source

import (
    "context"
    "errors"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
)

// ErrNoData signals that a source has nothing usable for an asset right
// now: absent symbol, empty order book, non-success status. It is not a
// failure; the pipeline skips the key and keeps the previous record.
var ErrNoData = errors.New("no data")

// Fragment is a source's native quote for one asset, in whatever units
// the source reports. Nil fields were not observed.
type Fragment struct {
    BuyFiat  *float64
    SellFiat *float64
    BuyUSD   *float64
    SellUSD  *float64
    // Denominated names the bridge asset the USD-side prices are quoted
    // in (e.g. a btc/usdt book), empty when not applicable.
    Denominated market.Asset
}

// Direct reports whether the source quoted the asset against fiat
// without bridging.
func (f Fragment) Direct() bool { return f.BuyFiat != nil && f.SellFiat != nil }

// Source is one exchange adapter: it knows the source's wire shapes and
// its missing-data signals, nothing about cross-asset composition.
type Source interface {
    Name() string
    // Bridges returns the fiat rates of bridge assets as observed at
    // this same source. Sources without fiat books return an empty set.
    Bridges(ctx context.Context) (bridge.Set, error)
    // Quote returns the native price fragment for one asset, or
    // ErrNoData when the source has nothing for it.
    Quote(ctx context.Context, asset market.Asset) (Fragment, error)
}

// Float is a convenience for building fragments from parsed values.
func Float(f float64) *float64 { return &f }
