package memory

import (
	"context"
	"strings"
	"sync"

	"cryptospread/internal/market"
	"cryptospread/internal/store"
)

type quoteKey struct {
	class  market.Class
	source string
	asset  market.Asset
}

// Store is a thread-safe in-memory implementation of the store
// interfaces, used by tests and the one-shot fetch CLI.
type Store struct {
	mu        sync.RWMutex
	quotes    map[quoteKey]market.Quote
	platforms map[string]market.PlatformProfile
}

func New() *Store {
	return &Store{
		quotes:    make(map[quoteKey]market.Quote),
		platforms: make(map[string]market.PlatformProfile),
	}
}

var _ store.QuoteStore = (*Store)(nil)
var _ store.PlatformStore = (*Store)(nil)

func (s *Store) UpsertQuote(_ context.Context, class market.Class, q market.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[quoteKey{class: class, source: q.SourceID, asset: q.Asset}] = q
	return nil
}

func (s *Store) ListQuotes(_ context.Context, class market.Class, asset market.Asset) ([]market.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.Quote
	for k, q := range s.quotes {
		if k.class == class && k.asset == asset {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) UpsertPlatform(_ context.Context, p market.PlatformProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = strings.ToLower(p.ID)
	s.platforms[p.ID] = p
	return nil
}

func (s *Store) GetPlatform(_ context.Context, id string) (market.PlatformProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.platforms[strings.ToLower(id)]
	if !ok {
		return market.PlatformProfile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPlatforms(_ context.Context, includeInactive bool) ([]market.PlatformProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.PlatformProfile, 0, len(s.platforms))
	for _, p := range s.platforms {
		if !includeInactive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) DeletePlatform(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.ToLower(id)
	if _, ok := s.platforms[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.platforms, id)
	return nil
}
