package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Loader produces a fresh product snapshot, typically by parsing the local
// feed file.
type Loader func(ctx context.Context) ([]Product, error)

// Cache is the process-wide memoized view of current products. It is empty
// at startup, populated on first read, and cleared as a whole when the
// fetcher confirms new feed bytes. A snapshot handed out before an
// invalidation stays valid for its holder; consumers may therefore run one
// fetch cycle behind, which is accepted.
//
// Access is guarded by a single RWMutex because Go does not give the
// atomic-snapshot semantics the relaxed original relied on.
type Cache struct {
	mu       sync.RWMutex
	loader   Loader
	products []Product
	loaded   bool
}

// NewCache constructs a Cache around the given loader.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Get returns the memoized snapshot, invoking the loader on first access or
// after an invalidation. The returned slice is a copy; callers may not
// mutate the cached products through it.
func (c *Cache) Get(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	if c.loaded {
		snapshot := c.snapshotLocked()
		c.mu.RUnlock()
		return snapshot, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.snapshotLocked(), nil
	}
	products, err := c.loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c.products = products
	c.loaded = true
	return c.snapshotLocked(), nil
}

// InStock returns the subset of the current snapshot that is available.
func (c *Cache) InStock(ctx context.Context) ([]Product, error) {
	products, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	available := products[:0:0]
	for _, p := range products {
		if p.InStock() {
			available = append(available, p)
		}
	}
	return available, nil
}

// Invalidate clears the snapshot so the next read re-parses fresh bytes.
// Invalidation is all-or-nothing.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.loaded = false
}

func (c *Cache) snapshotLocked() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
