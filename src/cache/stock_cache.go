package cache

import (
	"sort"
	"strings"
	"sync"

	"stock-watch/src/models"
)

// StockCache maps an upper-case symbol to its most recent snapshot.
// Entries are replaced whole and never evicted.
type StockCache struct {
	mu    sync.RWMutex
	items map[string]*models.MSnapshot
}

func NewStockCache() *StockCache {
	return &StockCache{items: make(map[string]*models.MSnapshot)}
}

// -----------------------------------------------------------------------------

func (c *StockCache) Get(symbol string) (*models.MSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.items[strings.ToUpper(symbol)]
	return snap, ok
}

// -----------------------------------------------------------------------------

// Put stores snap under symbol; nil snapshots are ignored so a failed fetch
// never clears a good value.
func (c *StockCache) Put(symbol string, snap *models.MSnapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	c.items[strings.ToUpper(symbol)] = snap
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Values returns a point-in-time copy ordered by symbol.
func (c *StockCache) Values() []*models.MSnapshot {
	c.mu.RLock()
	out := make([]*models.MSnapshot, 0, len(c.items))
	for _, snap := range c.items {
		out = append(out, snap)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// -----------------------------------------------------------------------------

// Snapshot copies the map, optionally restricted to symbols.
func (c *StockCache) Snapshot(symbols ...string) map[string]*models.MSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(symbols) == 0 {
		out := make(map[string]*models.MSnapshot, len(c.items))
		for k, v := range c.items {
			out[k] = v
		}
		return out
	}

	out := make(map[string]*models.MSnapshot, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(s)
		if v, ok := c.items[s]; ok {
			out[s] = v
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func (c *StockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
