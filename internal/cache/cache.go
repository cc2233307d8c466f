// Package cache holds the preloaded item catalog so that item clicks and
// quick-add lookups don't hammer the backend during a rush. Two backends are
// provided: an in-process TTL cache (the default) and Redis for shops that
// run several terminals against one catalog. Both store the catalog as one
// JSON blob under a single key; the catalog is small and always fetched
// whole.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"posterm/internal/domain"
)

// ErrMiss is returned when the catalog is not cached (absent or expired).
var ErrMiss = errors.New("item cache miss")

const catalogKey = "posterm:items:catalog"

// ItemCache stores the full item catalog.
type ItemCache interface {
	// Get returns the cached catalog or ErrMiss.
	Get(ctx context.Context) ([]domain.Item, error)

	// Set replaces the cached catalog.
	Set(ctx context.Context, items []domain.Item) error

	// Invalidate drops the cached catalog. Called after item create/update
	// so the next search sees fresh data.
	Invalidate(ctx context.Context) error
}

// Loader fetches the catalog from the backend on a miss.
type Loader func(ctx context.Context) ([]domain.Item, error)

// Catalog wraps an ItemCache with miss-handling: concurrent misses collapse
// into a single backend load.
type Catalog struct {
	cache  ItemCache
	load   Loader
	loadMu sync.Mutex
}

// NewCatalog creates a Catalog over the given cache and loader.
func NewCatalog(cache ItemCache, load Loader) *Catalog {
	return &Catalog{cache: cache, load: load}
}

// Items returns the cached catalog, loading it on a miss.
func (c *Catalog) Items(ctx context.Context) ([]domain.Item, error) {
	if items, err := c.cache.Get(ctx); err == nil {
		return items, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	// Another goroutine may have filled the cache while we waited.
	if items, err := c.cache.Get(ctx); err == nil {
		return items, nil
	}

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	// A failed cache write is not fatal; the catalog was fetched.
	_ = c.cache.Set(ctx, items)
	return items, nil
}

// Invalidate drops the cached catalog.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx)
}

// Memory is the in-process ItemCache.
type Memory struct {
	mu      sync.Mutex
	items   []domain.Item
	ttl     time.Duration
	expires time.Time
	filled  bool
}

// NewMemory creates an in-process cache. ttl <= 0 means entries never expire.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl}
}

// Get implements ItemCache.
func (m *Memory) Get(_ context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.filled {
		return nil, ErrMiss
	}
	if m.ttl > 0 && time.Now().After(m.expires) {
		m.filled = false
		m.items = nil
		return nil, ErrMiss
	}
	out := make([]domain.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

// Set implements ItemCache.
func (m *Memory) Set(_ context.Context, items []domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]domain.Item, len(items))
	copy(m.items, items)
	m.filled = true
	if m.ttl > 0 {
		m.expires = time.Now().Add(m.ttl)
	}
	return nil
}

// Invalidate implements ItemCache.
func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filled = false
	m.items = nil
	return nil
}
