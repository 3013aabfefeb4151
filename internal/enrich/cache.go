package enrich

import (
	"context"
	"fmt"
	"sync"

	"github.com/seismic-sync/catalog-etl/internal/domain"
	"github.com/seismic-sync/catalog-etl/internal/store"
)

// CachedStore wraps a store.Store with an in-memory LRU cache over the two
// single-point spatial lookups, which the Enricher calls once per event and
// which repeat heavily for events clustered in the same region. The
// remaining Store methods pass straight through.
type CachedStore struct {
	store.Store
	plates    *lruCache[*domain.Plate]
	countries *lruCache[*domain.Country]
}

// NewCachedStore decorates inner with an LRU cache of maxEntries per
// lookup kind.
func NewCachedStore(inner store.Store, maxEntries int) *CachedStore {
	return &CachedStore{
		Store:     inner,
		plates:    newLRUCache[*domain.Plate](maxEntries),
		countries: newLRUCache[*domain.Country](maxEntries),
	}
}

// FindPlateContaining overrides store.Store with a cached lookup keyed on
// the rounded coordinate pair.
func (c *CachedStore) FindPlateContaining(ctx context.Context, lon, lat float64) (*domain.Plate, error) {
	key := coordKey(lon, lat)
	if v, ok := c.plates.get(key); ok {
		return v, nil
	}
	v, err := c.Store.FindPlateContaining(ctx, lon, lat)
	if err != nil {
		return nil, err
	}
	c.plates.put(key, v)
	return v, nil
}

// FindCountryContaining overrides store.Store with a cached lookup keyed on
// the rounded coordinate pair.
func (c *CachedStore) FindCountryContaining(ctx context.Context, lon, lat float64) (*domain.Country, error) {
	key := coordKey(lon, lat)
	if v, ok := c.countries.get(key); ok {
		return v, nil
	}
	v, err := c.Store.FindCountryContaining(ctx, lon, lat)
	if err != nil {
		return nil, err
	}
	c.countries.put(key, v)
	return v, nil
}

// coordKey rounds to 1e-3 degrees (~100m), coarse enough to collapse
// clustered aftershocks onto shared cache entries without crossing typical
// reference-polygon boundaries.
func coordKey(lon, lat float64) string {
	return fmt.Sprintf("%.3f,%.3f", lon, lat)
}

// lruCache is a generic, thread-safe doubly-linked-list LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*lruEntry[V]
	head       *lruEntry[V]
	tail       *lruEntry[V]
}

type lruEntry[V any] struct {
	key   string
	value V
	prev  *lruEntry[V]
	next  *lruEntry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*lruEntry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &lruEntry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) moveToFront(e *lruEntry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *lruEntry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *lruEntry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
