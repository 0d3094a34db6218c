package masterdata

import (
	"context"
	"sync"
	"time"

	"livestock-purchasing/internal/core"

	"golang.org/x/sync/singleflight"
)

// CachedProvider wraps an OptionProvider with a per-kind TTL cache. Concurrent
// misses for the same kind share one upstream call.
type CachedProvider struct {
	inner core.OptionProvider
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[core.OptionKind]cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	options   []core.Option
	expiresAt time.Time
}

// NewCachedProvider wraps inner. A ttl <= 0 disables caching but keeps the
// in-flight de-duplication.
func NewCachedProvider(inner core.OptionProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[core.OptionKind]cacheEntry),
	}
}

// Options returns the list for kind, from cache when fresh.
func (p *CachedProvider) Options(ctx context.Context, kind core.OptionKind) ([]core.Option, error) {
	p.mu.RLock()
	entry, ok := p.cache[kind]
	now := p.now()
	p.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return clone(entry.options), nil
	}

	// The shared fetch outlives any single caller; each waiter still gives
	// up on its own context.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(string(kind), func() (any, error) {
		opts, err := p.inner.Options(fetchCtx, kind)
		if err != nil {
			return nil, err
		}
		if p.ttl > 0 {
			p.mu.Lock()
			p.cache[kind] = cacheEntry{options: opts, expiresAt: p.now().Add(p.ttl)}
			p.mu.Unlock()
		}
		return opts, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]core.Option)), nil
	}
}

// Invalidate drops one kind from the cache.
func (p *CachedProvider) Invalidate(kind core.OptionKind) {
	p.mu.Lock()
	delete(p.cache, kind)
	p.mu.Unlock()
}

// InvalidateAll clears the cache.
func (p *CachedProvider) InvalidateAll() {
	p.mu.Lock()
	p.cache = make(map[core.OptionKind]cacheEntry)
	p.mu.Unlock()
}

// SetClock replaces the time source. Tests only.
func (p *CachedProvider) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// Lookup returns the label for value, or value itself when it is not listed.
func Lookup(options []core.Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func clone(opts []core.Option) []core.Option {
	out := make([]core.Option, len(opts))
	copy(out, opts)
	return out
}
