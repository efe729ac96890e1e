package cache

import (
	"sync"

	"market_dashboard/models"
	"market_dashboard/ranker"
)

const DefaultTopLimit = 20

// TickerCache holds the latest snapshot per symbol. Writers replace whole values
// under the write lock, so a reader never sees a record assembled from two updates.
type TickerCache struct {
	mu      sync.RWMutex
	tickers map[string]models.TickerSnapshot
	order   []string // first-seen order, used to break volume ties
}

func NewTickerCache() *TickerCache {
	return &TickerCache{
		tickers: make(map[string]models.TickerSnapshot, 2048),
	}
}

// Apply stores every snapshot of a feed batch. Later entries for the same symbol win.
func (c *TickerCache) Apply(batch []models.TickerSnapshot) {
	if len(batch) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, snap := range batch {
		if snap.Symbol == "" {
			continue
		}
		if _, exists := c.tickers[snap.Symbol]; !exists {
			c.order = append(c.order, snap.Symbol)
		}
		c.tickers[snap.Symbol] = snap
	}
}

func (c *TickerCache) Get(symbol string) (models.TickerSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.tickers[symbol]
	return snap, ok
}

// GetAll returns a copy of every snapshot in first-seen order.
func (c *TickerCache) GetAll() []models.TickerSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.TickerSnapshot, 0, len(c.order))
	for _, symbol := range c.order {
		out = append(out, c.tickers[symbol])
	}
	return out
}

// GetTop returns up to limit snapshots by descending volume.
func (c *TickerCache) GetTop(limit int) []models.TickerSnapshot {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return ranker.Top(c.GetAll(), "", limit)
}

func (c *TickerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickers)
}
