package ratelimit

import (
    "context"
    "sync"
    "time"

    "cryptospread/internal/bridge"
    "cryptospread/internal/market"
    "cryptospread/internal/source"
)

// MinInterval wraps a source and enforces a minimum time between
// upstream calls, across both Bridges and Quote. Concurrent calls wait
// until the interval has elapsed since the last call, or return early
// if the context is canceled.
type MinInterval struct {
    S        source.Source
    Interval time.Duration
    mu       sync.Mutex
    last     time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) Bridges(ctx context.Context) (bridge.Set, error) {
    if err := m.gate(ctx); err != nil {
        return bridge.Set{}, err
    }
    set, err := m.S.Bridges(ctx)
    m.mark()
    return set, err
}

func (m *MinInterval) Quote(ctx context.Context, asset market.Asset) (source.Fragment, error) {
    if err := m.gate(ctx); err != nil {
        return source.Fragment{}, err
    }
    frag, err := m.S.Quote(ctx, asset)
    m.mark()
    return frag, err
}

func (m *MinInterval) gate(ctx context.Context) error {
    if m.Interval <= 0 { return nil }
    m.mu.Lock()
    wait := time.Until(m.last.Add(m.Interval))
    m.mu.Unlock()
    if wait <= 0 { return nil }
    t := time.NewTimer(wait)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

func (m *MinInterval) mark() {
    if m.Interval <= 0 { return }
    m.mu.Lock()
    m.last = time.Now()
    m.mu.Unlock()
}
