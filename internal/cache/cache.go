package cache

import (
	"context"
	"time"

	"cryptospread/internal/merge"
)

// PriceCache holds merged price lists keyed by asset so the read path
// does not hit the store on every request. A miss is (nil, false, nil).
type PriceCache interface {
	Get(ctx context.Context, asset string) ([]merge.Row, bool, error)
	Set(ctx context.Context, asset string, rows []merge.Row, ttl time.Duration) error
	Invalidate(ctx context.Context, asset string) error
}
