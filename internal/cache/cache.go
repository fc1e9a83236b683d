// Package cache holds resolved assets, keyed by canonical identifier, for the
// lifetime of a bridge.
package cache

import (
	"context"
	"strconv"
	"sync"

	"github.com/birkland/assetresolv"
	"golang.org/x/sync/singleflight"
)

// Cache is a concurrency safe store of resolved assets.
//
// It is not an LRU: entries are retained until explicitly invalidated.
// Concurrent loads of the same identifier are coalesced so that at most one
// load per identifier is in flight at any time.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]assetresolv.Asset
	generation uint64
	epochs     map[string]uint64 // per identifier invalidations, within a generation
	group      singleflight.Group
}

// LoadFunc loads an asset that is not in the cache.  It runs detached from the
// cancellation of any single caller, since its result is shared.
type LoadFunc func(ctx context.Context) (assetresolv.Asset, error)

// StoreFunc is notified when a loaded asset has been stored
type StoreFunc func(assetresolv.Asset)

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]assetresolv.Asset),
		epochs:  make(map[string]uint64),
	}
}

// Get returns the cached asset for the identifier, and false on a miss.
func (c *Cache) Get(id string) (assetresolv.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.entries[id]
	return a, ok
}

// Invalidate removes the given identifiers.  With no identifiers, the
// whole cache is cleared and a new generation begins.  Either way, loads
// already in flight for what was invalidated will not populate the cache.
func (c *Cache) Invalidate(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(ids) == 0 {
		c.entries = make(map[string]assetresolv.Asset)
		c.epochs = make(map[string]uint64)
		c.generation++
		return
	}

	for _, id := range ids {
		delete(c.entries, id)
		c.epochs[id]++
	}
}

// Len is the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// version identifies what a load for id started from
type version struct {
	generation uint64
	epoch      uint64
}

func (v version) key(id string) string {
	return strconv.FormatUint(v.generation, 10) + "." + strconv.FormatUint(v.epoch, 10) + "\x00" + id
}

// Load returns the cached asset for id, or loads it with the given function.
// Concurrent callers for the same id share a single invocation of load.
// Successful loads are stored (and stored is invoked) before any caller
// receives the result.  Failed loads are not cached.
//
// Each caller waits for the shared load only as long as its own ctx allows;  a
// caller giving up does not abandon the load for the others.
func (c *Cache) Load(ctx context.Context, id string, load LoadFunc, stored StoreFunc) (assetresolv.Asset, error) {
	if a, ok := c.Get(id); ok {
		return a, nil
	}
	if err := ctx.Err(); err != nil {
		return assetresolv.Asset{}, err
	}

	detached := context.WithoutCancel(ctx)
	v := c.version(id)
	ch := c.group.DoChan(v.key(id), func() (interface{}, error) {

		// Someone may have completed a load between our miss and now
		if a, ok := c.Get(id); ok {
			return a, nil
		}

		a, err := load(detached)
		if err != nil {
			return nil, err
		}

		if c.putIfCurrent(id, a, v) && stored != nil {
			stored(a)
		}
		return a, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return assetresolv.Asset{}, res.Err
		}
		return res.Val.(assetresolv.Asset), nil
	case <-ctx.Done():
		return assetresolv.Asset{}, ctx.Err()
	}
}

func (c *Cache) version(id string) version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return version{generation: c.generation, epoch: c.epochs[id]}
}

func (c *Cache) putIfCurrent(id string, asset assetresolv.Asset, v version) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.generation != c.generation || v.epoch != c.epochs[id] {
		return false
	}
	c.entries[id] = asset
	return true
}
