package store

import (
	"context"
	"errors"

	"cryptospread/internal/market"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// QuoteStore persists normalized automated quotes. UpsertQuote replaces
// the record for (sourceID, asset) atomically; writes to disjoint keys
// need no coordination.
type QuoteStore interface {
	UpsertQuote(ctx context.Context, class market.Class, q market.Quote) error
	ListQuotes(ctx context.Context, class market.Class, asset market.Asset) ([]market.Quote, error)
}

// PlatformStore persists operator-managed platform profiles.
type PlatformStore interface {
	UpsertPlatform(ctx context.Context, p market.PlatformProfile) error
	GetPlatform(ctx context.Context, id string) (market.PlatformProfile, error)
	ListPlatforms(ctx context.Context, includeInactive bool) ([]market.PlatformProfile, error)
	DeletePlatform(ctx context.Context, id string) error
}
